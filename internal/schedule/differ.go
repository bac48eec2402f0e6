package schedule

import (
	"context"
	"fmt"
)

// SlotUpdate is a desired slot that already exists under ID with different
// field values.
type SlotUpdate struct {
	ID string `json:"id"`
	DesiredSlot
}

// DiffResult buckets desired slots by what publishing them would do.
type DiffResult struct {
	Create []DesiredSlot `json:"create"`
	Update []SlotUpdate  `json:"update"`
	Skip   []DesiredSlot `json:"skip"`
}

// NewDiffResult returns a result with empty, non-nil buckets.
func NewDiffResult() DiffResult {
	return DiffResult{
		Create: []DesiredSlot{},
		Update: []SlotUpdate{},
		Skip:   []DesiredSlot{},
	}
}

// Diff classifies desired slots against what the tenant has persisted. It does
// one read covering the date span of desired and never writes.
func Diff(ctx context.Context, tenantID string, desired []DesiredSlot, r SlotReader) (DiffResult, error) {
	res := NewDiffResult()
	if len(desired) == 0 {
		return res, nil
	}

	from, to := dateSpan(desired)
	existing, err := r.FetchSlotsInRange(ctx, tenantID, from, to)
	if err != nil {
		return DiffResult{}, fmt.Errorf("fetch slots %s..%s: %w", from, to, err)
	}

	byKey := make(map[SlotKey]PersistedSlot, len(existing))
	for _, p := range existing {
		byKey[p.Key()] = p
	}

	for _, want := range desired {
		have, ok := byKey[want.Key()]
		switch {
		case !ok:
			res.Create = append(res.Create, want)
		case differs(have, want):
			res.Update = append(res.Update, SlotUpdate{ID: have.ID, DesiredSlot: want})
		default:
			res.Skip = append(res.Skip, want)
		}
	}
	return res, nil
}

func differs(have PersistedSlot, want DesiredSlot) bool {
	return have.Capacity != want.Capacity ||
		have.ResourceUnit != want.ResourceUnit ||
		have.Blackout != want.Blackout ||
		have.NotesOrEmpty() != want.Notes
}

func dateSpan(slots []DesiredSlot) (Date, Date) {
	from, to := slots[0].Date, slots[0].Date
	for _, s := range slots[1:] {
		if s.Date.Before(from) {
			from = s.Date
		}
		if s.Date.After(to) {
			to = s.Date
		}
	}
	return from, to
}
