package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slot-service/internal/schedule"
)

// BlackoutScope selects how a bulk blackout range is widened.
type BlackoutScope string

const (
	// ScopeDay blacks out every slot on the dates in range.
	ScopeDay BlackoutScope = "day"
	// ScopeWeek widens the range to whole Monday-Sunday weeks.
	ScopeWeek BlackoutScope = "week"
)

type BlackoutRequest struct {
	StartDate string        `json:"start_date" binding:"required"`
	EndDate   string        `json:"end_date" binding:"required"`
	Scope     BlackoutScope `json:"scope" binding:"required"`
	// Note replaces the notes of every slot it blacks out when set.
	Note *string `json:"note"`
}

type BlackoutResult struct {
	Scope     BlackoutScope `json:"scope"`
	StartDate schedule.Date `json:"start_date"`
	EndDate   schedule.Date `json:"end_date"`
	// AffectedSlots counts slots that were open before this call.
	AffectedSlots int64 `json:"affected_slots"`
}

// BlackoutSlots marks every open slot of the tenant in the range as blacked out.
// Slots already blacked out are left alone, so repeating a request affects nothing.
func (a *App) BlackoutSlots(ctx context.Context, tenantID string, req BlackoutRequest) (BlackoutResult, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate, a.maxRangeDays())
	if err != nil {
		return BlackoutResult{}, err
	}
	scope := BlackoutScope(strings.ToLower(string(req.Scope)))
	switch scope {
	case ScopeDay:
	case ScopeWeek:
		start, end = weekBounds(start, end)
	default:
		return BlackoutResult{}, validationf("invalid scope %q: must be %q or %q (use PATCH /api/slots/:id for one slot)", req.Scope, ScopeDay, ScopeWeek)
	}

	n, err := a.Slots.BlackoutSlots(ctx, tenantID, start, end, req.Note)
	if err != nil {
		return BlackoutResult{}, err
	}
	a.logger().Info("slots blacked out",
		zap.String("tenant_id", tenantID),
		zap.String("scope", string(scope)),
		zap.Stringer("start_date", start),
		zap.Stringer("end_date", end),
		zap.Int64("affected", n),
	)
	return BlackoutResult{Scope: scope, StartDate: start, EndDate: end, AffectedSlots: n}, nil
}

// weekBounds widens [start, end] to the Monday on or before start and the
// Sunday on or after end.
func weekBounds(start, end schedule.Date) (schedule.Date, schedule.Date) {
	sinceMonday := func(d schedule.Date) int {
		return (int(d.Weekday(time.UTC)) + 6) % 7
	}
	return start.AddDays(-sinceMonday(start)), end.AddDays(6 - sinceMonday(end))
}

type BulkCreateRequest struct {
	StartDate     string   `json:"start_date" binding:"required"`
	EndDate       string   `json:"end_date" binding:"required"`
	StartTime     string   `json:"start_time" binding:"required"`
	EndTime       string   `json:"end_time" binding:"required"`
	SlotLengthMin int      `json:"slot_length_min" binding:"required,gt=0,lte=1440"`
	Capacity      *float64 `json:"capacity" binding:"omitempty,gte=0"`
	ResourceUnit  *string  `json:"resource_unit" binding:"omitempty,min=1,max=32"`
	Notes         *string  `json:"notes" binding:"omitempty,max=500"`
}

type BulkCreateResult struct {
	Created int `json:"created"`
	// Existing counts planned slots already stored; they are not touched.
	Existing int `json:"existing"`
}

// BulkCreateSlots creates fixed-length slots between StartTime and EndTime on
// every date in range. Slots that already exist keep their stored values.
func (a *App) BulkCreateSlots(ctx context.Context, tenantID string, req BulkCreateRequest) (BulkCreateResult, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate, a.maxRangeDays())
	if err != nil {
		return BulkCreateResult{}, err
	}
	from, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return BulkCreateResult{}, validationf("start_time: %v", err)
	}
	to, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		return BulkCreateResult{}, validationf("end_time: %v", err)
	}
	if to <= from {
		return BulkCreateResult{}, validationf("end_time must be after start_time")
	}

	day := schedule.DaySchedule{
		Enabled:      true,
		Start:        from,
		End:          to,
		Capacity:     req.Capacity,
		ResourceUnit: req.ResourceUnit,
		Notes:        req.Notes,
	}
	cfg := schedule.TemplateConfig{
		Weekdays:            make(map[time.Weekday]schedule.DaySchedule, 7),
		SlotLengthMin:       req.SlotLengthMin,
		DefaultCapacity:     schedule.DefaultCapacity,
		DefaultResourceUnit: schedule.DefaultResourceUnit,
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		cfg.Weekdays[wd] = day
	}
	plan := schedule.PlanSlots(tenantID, cfg, start, end, time.UTC)

	diff, err := schedule.Diff(ctx, tenantID, plan, a.Slots)
	if err != nil {
		return BulkCreateResult{}, err
	}
	pub, err := schedule.Publish(ctx, tenantID, diff.Create, a.Slots)
	if err != nil {
		return BulkCreateResult{}, err
	}
	res := BulkCreateResult{Created: pub.Created, Existing: len(plan) - pub.Created}
	a.logger().Info("slots bulk created",
		zap.String("tenant_id", tenantID),
		zap.Stringer("start_date", start),
		zap.Stringer("end_date", end),
		zap.Int("created", res.Created),
		zap.Int("existing", res.Existing),
	)
	return res, nil
}

// POST /api/slots/blackout
func (a *App) BlackoutSlotsHandler(c *gin.Context) {
	var req BlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.BlackoutSlots(c.Request.Context(), tenantID(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/slots/bulk
func (a *App) BulkCreateSlotsHandler(c *gin.Context) {
	var req BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.BulkCreateSlots(c.Request.Context(), tenantID(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
