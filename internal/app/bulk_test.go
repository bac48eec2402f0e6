package app

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBlackoutSlotsHandler(t *testing.T) {
	env := newTestEnv(t)
	closed := persistedSlot(t, "2025-08-20", 9, 10)
	closed.Blackout = true
	env.slots.Seed(
		persistedSlot(t, "2025-08-18", 8, 10), // Monday
		persistedSlot(t, "2025-08-20", 8, 10), // Wednesday
		closed,
		persistedSlot(t, "2025-08-24", 8, 10), // Sunday
		persistedSlot(t, "2025-08-25", 8, 10), // next Monday
	)

	day := gin.H{"start_date": "2025-08-20", "end_date": "2025-08-20", "scope": "day", "note": "maintenance"}
	w := env.do(t, http.MethodPost, "/api/slots/blackout", adminToken, day)
	expectStatus(t, w, http.StatusOK)
	if got := decode[BlackoutResult](t, w); got.AffectedSlots != 1 || got.Scope != ScopeDay {
		t.Errorf("day blackout = %+v, want 1 affected", got)
	}
	for _, s := range env.slots.Slots(tenantA) {
		if s.Date.String() != "2025-08-20" {
			continue
		}
		if !s.Blackout {
			t.Errorf("slot %s %s not blacked out", s.Date, s.Start)
		}
		if s.Start.Hour() == 8 && s.NotesOrEmpty() != "maintenance" {
			t.Errorf("note not applied: %q", s.NotesOrEmpty())
		}
		if s.Start.Hour() == 9 && s.NotesOrEmpty() != "" {
			t.Error("already blacked out slot must keep its notes")
		}
	}

	w = env.do(t, http.MethodPost, "/api/slots/blackout", adminToken, day)
	expectStatus(t, w, http.StatusOK)
	if got := decode[BlackoutResult](t, w); got.AffectedSlots != 0 {
		t.Errorf("repeated blackout affected %d slots, want 0", got.AffectedSlots)
	}

	week := gin.H{"start_date": "2025-08-20", "end_date": "2025-08-20", "scope": "WEEK"}
	w = env.do(t, http.MethodPost, "/api/slots/blackout", adminToken, week)
	expectStatus(t, w, http.StatusOK)
	got := decode[BlackoutResult](t, w)
	if got.AffectedSlots != 2 || got.StartDate.String() != "2025-08-18" || got.EndDate.String() != "2025-08-24" {
		t.Errorf("week blackout = %+v, want Monday 18th to Sunday 24th with 2 affected", got)
	}
	for _, s := range env.slots.Slots(tenantA) {
		if s.Date.String() == "2025-08-25" && s.Blackout {
			t.Error("slot after the week was blacked out")
		}
	}

	w = env.do(t, http.MethodPost, "/api/slots/blackout", otherToken, gin.H{"start_date": "2025-08-01", "end_date": "2025-08-31", "scope": "day"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[BlackoutResult](t, w); got.AffectedSlots != 0 {
		t.Errorf("other tenant affected %d slots", got.AffectedSlots)
	}
}

func TestBlackoutSlotsHandler_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.slots.Seed(persistedSlot(t, "2025-08-18", 8, 10))

	tests := []struct {
		name   string
		token  string
		body   gin.H
		status int
	}{
		{"viewer", viewerToken, gin.H{"start_date": "2025-08-18", "end_date": "2025-08-18", "scope": "day"}, http.StatusForbidden},
		{"missing scope", adminToken, gin.H{"start_date": "2025-08-18", "end_date": "2025-08-18"}, http.StatusBadRequest},
		{"unknown scope", adminToken, gin.H{"start_date": "2025-08-18", "end_date": "2025-08-18", "scope": "month"}, http.StatusBadRequest},
		{"slot scope", adminToken, gin.H{"start_date": "2025-08-18", "end_date": "2025-08-18", "scope": "slot"}, http.StatusBadRequest},
		{"bad date", adminToken, gin.H{"start_date": "2025/08/18", "end_date": "2025-08-18", "scope": "day"}, http.StatusBadRequest},
		{"inverted", adminToken, gin.H{"start_date": "2025-08-19", "end_date": "2025-08-18", "scope": "day"}, http.StatusBadRequest},
		{"too long", adminToken, gin.H{"start_date": "2025-01-01", "end_date": "2026-12-31", "scope": "day"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do(t, http.MethodPost, "/api/slots/blackout", tt.token, tt.body), tt.status)
		})
	}
	if s := env.slots.Slots(tenantA)[0]; s.Blackout {
		t.Error("rejected requests must not black out slots")
	}
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		start, end         string
		wantStart, wantEnd string
	}{
		{"2025-08-20", "2025-08-27", "2025-08-18", "2025-08-31"},
		{"2025-08-18", "2025-08-24", "2025-08-18", "2025-08-24"},
		{"2025-08-24", "2025-08-25", "2025-08-18", "2025-08-31"},
	}
	for _, tt := range tests {
		from, to := weekBounds(mustDate(t, tt.start), mustDate(t, tt.end))
		if from.String() != tt.wantStart || to.String() != tt.wantEnd {
			t.Errorf("weekBounds(%s, %s) = %s..%s, want %s..%s", tt.start, tt.end, from, to, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestBulkCreateSlotsHandler(t *testing.T) {
	env := newTestEnv(t)
	env.slots.Seed(persistedSlot(t, "2025-08-18", 8, 99))

	body := gin.H{
		"start_date":      "2025-08-18",
		"end_date":        "2025-08-19",
		"start_time":      "8:00",
		"end_time":        "10:30",
		"slot_length_min": 60,
		"capacity":        5,
		"notes":           "intake",
	}
	w := env.do(t, http.MethodPost, "/api/slots/bulk", adminToken, body)
	expectStatus(t, w, http.StatusCreated)
	if got := decode[BulkCreateResult](t, w); got.Created != 3 || got.Existing != 1 {
		t.Errorf("bulk create = %+v, want 3 created and 1 existing", got)
	}

	slots := env.slots.Slots(tenantA)
	if len(slots) != 4 {
		t.Fatalf("stored %d slots, want 4", len(slots))
	}
	if slots[0].Capacity != 99 {
		t.Errorf("existing slot was overwritten: %+v", slots[0])
	}
	if slots[1].Capacity != 5 || slots[1].NotesOrEmpty() != "intake" || slots[1].End.String() != "10:00" {
		t.Errorf("new slot = %+v", slots[1])
	}

	w = env.do(t, http.MethodPost, "/api/slots/bulk", adminToken, body)
	expectStatus(t, w, http.StatusCreated)
	if got := decode[BulkCreateResult](t, w); got.Created != 0 || got.Existing != 4 {
		t.Errorf("repeated bulk create = %+v", got)
	}
}

func TestBulkCreateSlotsHandler_Errors(t *testing.T) {
	env := newTestEnv(t)
	valid := func(overrides gin.H) gin.H {
		b := gin.H{"start_date": "2025-08-18", "end_date": "2025-08-18", "start_time": "08:00", "end_time": "10:00", "slot_length_min": 60}
		for k, v := range overrides {
			b[k] = v
		}
		return b
	}

	tests := []struct {
		name   string
		token  string
		body   gin.H
		status int
	}{
		{"viewer", viewerToken, valid(nil), http.StatusForbidden},
		{"zero slot length", adminToken, valid(gin.H{"slot_length_min": 0}), http.StatusBadRequest},
		{"negative capacity", adminToken, valid(gin.H{"capacity": -1}), http.StatusBadRequest},
		{"bad time", adminToken, valid(gin.H{"start_time": "8am"}), http.StatusBadRequest},
		{"inverted window", adminToken, valid(gin.H{"start_time": "10:00", "end_time": "08:00"}), http.StatusBadRequest},
		{"inverted range", adminToken, valid(gin.H{"start_date": "2025-08-19"}), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do(t, http.MethodPost, "/api/slots/bulk", tt.token, tt.body), tt.status)
		})
	}
	if n := len(env.slots.Slots(tenantA)); n != 0 {
		t.Errorf("rejected requests stored %d slots", n)
	}
}
