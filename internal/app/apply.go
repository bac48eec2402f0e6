package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"slot-service/internal/schedule"
)

// Mode selects whether apply-template only reports or also writes.
type Mode string

const (
	ModePreview Mode = "preview"
	ModePublish Mode = "publish"
)

// sampleSize caps each preview bucket in the response.
const sampleSize = 10

type ApplyTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Mode       Mode   `json:"mode" binding:"required"`

	// Timezone overrides the default planning timezone (IANA name).
	Timezone string `json:"timezone,omitempty"`
}

type ApplyTemplateResult struct {
	Created int                 `json:"created"`
	Updated int                 `json:"updated"`
	Skipped int                 `json:"skipped"`
	Preview bool                `json:"preview"`
	Samples schedule.DiffResult `json:"samples"`
}

// ApplyTemplate plans the template over the requested range and either
// diffs the plan against stored slots (preview) or publishes it.
func (a *App) ApplyTemplate(ctx context.Context, tenantID string, req ApplyTemplateRequest) (ApplyTemplateResult, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate, a.maxRangeDays())
	if err != nil {
		return ApplyTemplateResult{}, err
	}
	mode := Mode(strings.ToLower(string(req.Mode)))
	if mode != ModePreview && mode != ModePublish {
		return ApplyTemplateResult{}, validationf("mode must be %q or %q", ModePreview, ModePublish)
	}
	loc := a.location()
	if req.Timezone != "" {
		if loc, err = time.LoadLocation(req.Timezone); err != nil {
			return ApplyTemplateResult{}, validationf("unknown timezone %q", req.Timezone)
		}
	}

	tpl, ok, err := a.Templates.GetTemplate(ctx, tenantID, req.TemplateID)
	if err != nil {
		return ApplyTemplateResult{}, fmt.Errorf("load template %s: %w", req.TemplateID, err)
	}
	if !ok {
		return ApplyTemplateResult{}, notFoundf("template %s", req.TemplateID)
	}

	log := a.logger().With(
		zap.String("tenant_id", tenantID),
		zap.String("template_id", tpl.ID),
		zap.String("mode", string(mode)),
	)
	for _, issue := range tpl.Config.Issues {
		log.Warn("ignoring template config entry", zap.String("entry", issue.Path), zap.String("reason", issue.Reason))
	}

	var plan []schedule.DesiredSlot
	if from, to, ok := tpl.ActiveWindow(start, end); ok {
		plan = schedule.PlanSlots(tenantID, tpl.Config, from, to, loc)
	}

	res := ApplyTemplateResult{Preview: mode == ModePreview, Samples: schedule.NewDiffResult()}
	switch mode {
	case ModePreview:
		diff, err := schedule.Diff(ctx, tenantID, plan, a.Slots)
		if err != nil {
			return ApplyTemplateResult{}, err
		}
		res.Created, res.Updated, res.Skipped = len(diff.Create), len(diff.Update), len(diff.Skip)
		res.Samples = schedule.DiffResult{
			Create: head(diff.Create, sampleSize),
			Update: head(diff.Update, sampleSize),
			Skip:   head(diff.Skip, sampleSize),
		}
	case ModePublish:
		pub, err := schedule.Publish(ctx, tenantID, plan, a.Slots)
		if err != nil {
			return ApplyTemplateResult{}, err
		}
		res.Created, res.Updated, res.Skipped = pub.Created, pub.Updated, pub.Skipped
	}

	log.Info("template applied",
		zap.Stringer("start_date", start),
		zap.Stringer("end_date", end),
		zap.Int("planned", len(plan)),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// parseRange parses an inclusive YYYY-MM-DD range no longer than maxDays.
func parseRange(startStr, endStr string, maxDays int) (schedule.Date, schedule.Date, error) {
	start, err := schedule.ParseDate(startStr)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, validationf("invalid start_date %q, use YYYY-MM-DD", startStr)
	}
	end, err := schedule.ParseDate(endStr)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, validationf("invalid end_date %q, use YYYY-MM-DD", endStr)
	}
	if start.After(end) {
		return schedule.Date{}, schedule.Date{}, validationf("start_date must be on or before end_date")
	}
	if start.DaysUntil(end) > maxDays {
		return schedule.Date{}, schedule.Date{}, validationf("date range cannot exceed %d days", maxDays)
	}
	return start, end, nil
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
