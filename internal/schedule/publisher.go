package schedule

import (
	"context"
	"fmt"
)

// PublishResult counts what a publish did.
type PublishResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Publish writes plan for tenantID in one transaction. Each slot is first
// updated by natural key and inserted only when no row matched, so running
// the same plan again creates nothing.
//
// A matched row counts as updated even when its values were already equal;
// Skipped is whatever is left of the plan and is 0 whenever Publish succeeds.
// Diff is the place to ask which rows would really change.
//
// Any failure rolls the whole plan back and no counts are returned.
func Publish(ctx context.Context, tenantID string, plan []DesiredSlot, tx Transactor) (PublishResult, error) {
	if len(plan) == 0 {
		return PublishResult{}, nil
	}

	var res PublishResult
	err := tx.WithinTx(ctx, func(w SlotWriter) error {
		res = PublishResult{}
		for _, s := range plan {
			n, err := w.UpdateSlotByKey(ctx, tenantID, s)
			if err != nil {
				return fmt.Errorf("update slot %s: %w", s.Key(), err)
			}
			if n > 0 {
				res.Updated++
				continue
			}
			if _, err := w.InsertSlot(ctx, tenantID, s); err != nil {
				return fmt.Errorf("insert slot %s: %w", s.Key(), err)
			}
			res.Created++
		}
		return nil
	})
	if err != nil {
		return PublishResult{}, err
	}

	res.Skipped = len(plan) - (res.Created + res.Updated)
	return res, nil
}
