package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"slot-service/internal/schedule"
)

// SlotRepository is the persisted slot table.
type SlotRepository interface {
	schedule.SlotReader
	schedule.Transactor
	PatchSlot(ctx context.Context, tenantID, id string, p schedule.SlotPatch) (schedule.PersistedSlot, bool, error)
	// BlackoutSlots blacks out the tenant's open slots dated in [from, to],
	// replacing their notes when note is set, and reports how many changed.
	BlackoutSlots(ctx context.Context, tenantID string, from, to schedule.Date, note *string) (int64, error)
}

// TemplateRepository stores tenant templates. Lookups by id that find
// nothing for the tenant report ok=false rather than an error.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, tenantID, id string) (schedule.Template, bool, error)
	ListTemplates(ctx context.Context, tenantID string) ([]schedule.Template, error)
	CreateTemplate(ctx context.Context, t *schedule.Template) error
	UpdateTemplate(ctx context.Context, t *schedule.Template) (bool, error)
	DeleteTemplate(ctx context.Context, tenantID, id string) (bool, error)
}

type App struct {
	Slots     SlotRepository
	Templates TemplateRepository
	Logger    *zap.Logger

	// Location is the planning timezone when a request names none.
	Location     *time.Location
	MaxRangeDays int

	// Calendar is nil when Google Calendar is not configured.
	Calendar *GoogleCalendarConfig
}

const defaultMaxRangeDays = 366

func (a *App) location() *time.Location {
	if a.Location == nil {
		return time.UTC
	}
	return a.Location
}

func (a *App) maxRangeDays() int {
	if a.MaxRangeDays <= 0 {
		return defaultMaxRangeDays
	}
	return a.MaxRangeDays
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
