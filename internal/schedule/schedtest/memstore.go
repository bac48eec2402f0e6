// Package schedtest provides in-memory stores for tests of code built on
// package schedule.
package schedtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"slot-service/internal/schedule"
)

// ErrDuplicateKey mirrors the unique constraint on a slot's natural key.
var ErrDuplicateKey = errors.New("duplicate slot key")

// MemStore keeps slots in memory and gives WithinTx all-or-nothing
// semantics by working on a copy that is only kept on success.
type MemStore struct {
	mu    sync.Mutex
	slots []schedule.PersistedSlot

	// Reads counts FetchSlotsInRange calls; Txs counts WithinTx calls.
	Reads int
	Txs   int

	// FailFetch, when set, is returned by FetchSlotsInRange.
	FailFetch error
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

// Seed stores slots as-is, assigning ids where missing.
func (m *MemStore) Seed(slots ...schedule.PersistedSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slots {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		m.slots = append(m.slots, s)
	}
}

// Slots returns a sorted copy of the tenant's slots.
func (m *MemStore) Slots(tenantID string) []schedule.PersistedSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schedule.PersistedSlot
	for _, s := range m.slots {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out
}

func (m *MemStore) FetchSlotsInRange(ctx context.Context, tenantID string, from, to schedule.Date) ([]schedule.PersistedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.FailFetch != nil {
		return nil, m.FailFetch
	}
	var out []schedule.PersistedSlot
	for _, s := range m.slots {
		if s.TenantID == tenantID && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out, nil
}

// GetSlot returns the slot with id for the tenant.
func (m *MemStore) GetSlot(ctx context.Context, tenantID, id string) (schedule.PersistedSlot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.TenantID == tenantID && s.ID == id {
			return s, true
		}
	}
	return schedule.PersistedSlot{}, false
}

// PatchSlot applies p to the tenant's slot with id.
func (m *MemStore) PatchSlot(ctx context.Context, tenantID, id string, p schedule.SlotPatch) (schedule.PersistedSlot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		s := &m.slots[i]
		if s.TenantID != tenantID || s.ID != id {
			continue
		}
		if p.Capacity != nil {
			s.Capacity = *p.Capacity
		}
		if p.Blackout != nil {
			s.Blackout = *p.Blackout
		}
		if p.Notes != nil {
			notes := *p.Notes
			s.Notes = &notes
		}
		return *s, true, nil
	}
	return schedule.PersistedSlot{}, false, nil
}

// BlackoutSlots blacks out the tenant's open slots in [from, to].
func (m *MemStore) BlackoutSlots(ctx context.Context, tenantID string, from, to schedule.Date, note *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.slots {
		s := &m.slots[i]
		if s.TenantID != tenantID || s.Blackout || s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		s.Blackout = true
		if note != nil {
			v := *note
			s.Notes = &v
		}
		n++
	}
	return n, nil
}

func (m *MemStore) WithinTx(ctx context.Context, fn func(w schedule.SlotWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Txs++

	work := &memTx{slots: append([]schedule.PersistedSlot(nil), m.slots...)}
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.slots = work.slots
	return nil
}

type memTx struct {
	slots []schedule.PersistedSlot
}

func (t *memTx) UpdateSlotByKey(ctx context.Context, tenantID string, s schedule.DesiredSlot) (int64, error) {
	if err := checkSlot(s); err != nil {
		return 0, err
	}
	var n int64
	for i := range t.slots {
		p := &t.slots[i]
		if p.TenantID == tenantID && p.Key() == s.Key() {
			notes := s.Notes
			p.Capacity = s.Capacity
			p.ResourceUnit = s.ResourceUnit
			p.Blackout = s.Blackout
			p.Notes = &notes
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertSlot(ctx context.Context, tenantID string, s schedule.DesiredSlot) (string, error) {
	if err := checkSlot(s); err != nil {
		return "", err
	}
	for _, p := range t.slots {
		if p.TenantID == tenantID && p.Key() == s.Key() {
			return "", fmt.Errorf("%w: %s", ErrDuplicateKey, s.Key())
		}
	}
	notes := s.Notes
	id := uuid.NewString()
	t.slots = append(t.slots, schedule.PersistedSlot{
		ID:           id,
		TenantID:     tenantID,
		Date:         s.Date,
		Start:        s.Start,
		End:          s.End,
		Capacity:     s.Capacity,
		ResourceUnit: s.ResourceUnit,
		Notes:        &notes,
		Blackout:     s.Blackout,
	})
	return id, nil
}

// checkSlot rejects what NOT NULL and CHECK constraints would.
func checkSlot(s schedule.DesiredSlot) error {
	if s.Date.IsZero() {
		return fmt.Errorf("%w: date is required", schedule.ErrInvalidSlot)
	}
	if !s.Start.Valid() || !s.End.Valid() || s.End <= s.Start {
		return fmt.Errorf("%w: bad time window %s-%s", schedule.ErrInvalidSlot, s.Start, s.End)
	}
	return nil
}

func sortSlots(s []schedule.PersistedSlot) {
	sort.Slice(s, func(i, j int) bool {
		if c := s[i].Date.Compare(s[j].Date); c != 0 {
			return c < 0
		}
		return s[i].Start < s[j].Start
	})
}

// MemTemplates is an in-memory template store.
type MemTemplates struct {
	mu        sync.Mutex
	templates map[string]schedule.Template
	Gets      int
}

func NewMemTemplates(templates ...schedule.Template) *MemTemplates {
	m := &MemTemplates{templates: make(map[string]schedule.Template)}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

func (m *MemTemplates) GetTemplate(ctx context.Context, tenantID, id string) (schedule.Template, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	t, ok := m.templates[id]
	if !ok || t.TenantID != tenantID {
		return schedule.Template{}, false, nil
	}
	return t, true, nil
}

func (m *MemTemplates) ListTemplates(ctx context.Context, tenantID string) ([]schedule.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schedule.Template
	for _, t := range m.templates {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemTemplates) CreateTemplate(ctx context.Context, t *schedule.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	m.templates[t.ID] = *t
	return nil
}

func (m *MemTemplates) UpdateTemplate(ctx context.Context, t *schedule.Template) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.templates[t.ID]
	if !ok || old.TenantID != t.TenantID {
		return false, nil
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	m.templates[t.ID] = *t
	return true, nil
}

func (m *MemTemplates) DeleteTemplate(ctx context.Context, tenantID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.TenantID != tenantID {
		return false, nil
	}
	delete(m.templates, id)
	return true, nil
}
