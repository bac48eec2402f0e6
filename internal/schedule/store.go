package schedule

import "context"

// SlotReader reads persisted slots for the differ.
type SlotReader interface {
	// FetchSlotsInRange returns every slot of the tenant whose date lies in
	// [from, to], both inclusive.
	FetchSlotsInRange(ctx context.Context, tenantID string, from, to Date) ([]PersistedSlot, error)
}

// SlotWriter writes slots inside a transaction opened by a Transactor.
type SlotWriter interface {
	// UpdateSlotByKey sets the mutable fields of the slot matching s's natural
	// key and reports how many rows changed.
	UpdateSlotByKey(ctx context.Context, tenantID string, s DesiredSlot) (int64, error)

	// InsertSlot stores s as a new row and returns its generated id.
	InsertSlot(ctx context.Context, tenantID string, s DesiredSlot) (string, error)
}

// Transactor runs fn in a single transaction: committed when fn returns nil,
// rolled back otherwise.
//
// The update-then-insert protocol used by Publish is only safe against
// concurrent publishers when the backing store enforces uniqueness of
// (tenant_id, date, start_time, end_time).
type Transactor interface {
	WithinTx(ctx context.Context, fn func(w SlotWriter) error) error
}

// SlotPatch changes mutable fields of one slot; nil fields stay as they are.
type SlotPatch struct {
	Capacity *float64 `json:"capacity"`
	Blackout *bool    `json:"blackout"`
	Notes    *string  `json:"notes"`
}

func (p SlotPatch) Empty() bool {
	return p.Capacity == nil && p.Blackout == nil && p.Notes == nil
}
