package schedule

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeConfig_Defaults(t *testing.T) {
	cfg := mustConfig(t, `{"weekdays": {"fri": {"enabled": true}}}`)

	if cfg.SlotLengthMin != DefaultSlotLengthMin {
		t.Errorf("SlotLengthMin = %d, want %d", cfg.SlotLengthMin, DefaultSlotLengthMin)
	}
	if cfg.DefaultCapacity != DefaultCapacity {
		t.Errorf("DefaultCapacity = %v", cfg.DefaultCapacity)
	}
	if cfg.DefaultResourceUnit != DefaultResourceUnit {
		t.Errorf("DefaultResourceUnit = %q", cfg.DefaultResourceUnit)
	}
	fri, ok := cfg.Weekdays[time.Friday]
	if !ok {
		t.Fatal("expected friday schedule")
	}
	if !fri.Enabled || fri.Start != ClockOf(8, 0) || fri.End != ClockOf(17, 0) {
		t.Errorf("unexpected friday defaults: %+v", fri)
	}
	if len(cfg.Issues) != 0 {
		t.Errorf("unexpected issues: %v", cfg.Issues)
	}
}

func TestDecodeConfig_CollectsIssues(t *testing.T) {
	cfg := mustConfig(t, `{
		"weekdays": {
			"monday": {"start_time": "09:00"},
			"tue": {"start_time": "9am"},
			"wed": {"start_time": "09:00", "end_time": "11:00"}
		},
		"exceptions": [
			{"date": "2025-08-18", "type": "closure"},
			{"date": "2025-13-01", "type": "blackout"},
			{"date": "2025-08-19", "type": "override", "start_time": "25:00"},
			{"date": "2025-08-20", "type": "BLACKOUT"}
		]
	}`)

	paths := make([]string, 0, len(cfg.Issues))
	for _, issue := range cfg.Issues {
		paths = append(paths, issue.Path)
	}
	want := []string{"weekdays.monday", "weekdays.tue", "exceptions[0]", "exceptions[1]", "exceptions[2]"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("issue paths = %v, want %v", paths, want)
	}
	if len(cfg.Weekdays) != 1 {
		t.Errorf("expected only wed to survive, got %d weekdays", len(cfg.Weekdays))
	}
	if len(cfg.Exceptions) != 1 || cfg.Exceptions[0].Kind != ExceptionBlackout {
		t.Errorf("expected one blackout to survive, got %+v", cfg.Exceptions)
	}
}

func TestDecodeConfig_InvalidJSON(t *testing.T) {
	if _, err := DecodeConfig([]byte(`{"weekdays": [`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestTemplateConfig_JSONRoundTrip(t *testing.T) {
	cfg := mustConfig(t, `{
		"weekdays": {"mon": {"enabled": true, "start_time": "09:00", "end_time": "10:00", "capacity": 15, "notes": "early"}},
		"slot_length_min": 20,
		"default_capacity": 12,
		"default_resource_unit": "bins",
		"exceptions": [
			{"date": "2025-08-18", "type": "blackout"},
			{"date": "2025-08-19", "type": "override", "start_time": "14:00", "end_time": "16:00", "capacity": 25}
		]
	}`)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back TemplateConfig
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	from := mustDate(t, "2025-08-18")
	to := mustDate(t, "2025-08-26")
	a := PlanSlots("t", cfg, from, to, time.UTC)
	b := PlanSlots("t", back, from, to, time.UTC)
	if len(a) != len(b) {
		t.Fatalf("round trip changed the plan: %d vs %d slots", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("slot %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "valid",
			raw:  `{"weekdays": {"mon": {"start_time": "09:00", "end_time": "10:00"}}, "slot_length_min": 30}`,
		},
		{
			name:    "zero slot length",
			raw:     `{"weekdays": {}, "slot_length_min": 0}`,
			wantErr: "SlotLengthMin",
		},
		{
			name:    "inverted window",
			raw:     `{"weekdays": {"mon": {"start_time": "10:00", "end_time": "09:00"}}}`,
			wantErr: "weekdays.mon: end_time must be after start_time",
		},
		{
			name: "disabled inverted window is fine",
			raw:  `{"weekdays": {"mon": {"enabled": false, "start_time": "10:00", "end_time": "09:00"}}}`,
		},
		{
			name:    "unknown exception type",
			raw:     `{"exceptions": [{"date": "2025-08-18", "type": "holiday"}]}`,
			wantErr: "unknown exception type",
		},
		{
			name:    "null day entry",
			raw:     `{"weekdays": {"mon": null}}`,
			wantErr: "weekdays.mon: empty day entry",
		},
		{
			name:    "empty day entry",
			raw:     `{"weekdays": {"tue": {}}}`,
			wantErr: "weekdays.tue: empty day entry",
		},
		{
			name:    "padded exception date",
			raw:     `{"exceptions": [{"date": " 2025-08-18", "type": "blackout"}]}`,
			wantErr: "invalid date",
		},
		{
			name:    "duplicate exception date",
			raw:     `{"exceptions": [{"date": "2025-08-18", "type": "blackout"}, {"date": "2025-08-18", "type": "blackout"}]}`,
			wantErr: "duplicate exception",
		},
		{
			name:    "negative capacity",
			raw:     `{"weekdays": {"mon": {"capacity": -1}}}`,
			wantErr: "Capacity",
		},
		{
			name:    "empty resource unit",
			raw:     `{"default_resource_unit": ""}`,
			wantErr: "DefaultResourceUnit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(mustConfig(t, tt.raw))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestTemplate_ActiveWindow(t *testing.T) {
	from := mustDate(t, "2025-08-01")
	to := mustDate(t, "2025-08-31")
	activeFrom := mustDate(t, "2025-08-10")
	activeTo := mustDate(t, "2025-08-20")
	late := mustDate(t, "2025-09-10")

	tests := []struct {
		name     string
		tpl      Template
		wantFrom string
		wantTo   string
		wantOK   bool
	}{
		{"unbounded", Template{}, "2025-08-01", "2025-08-31", true},
		{"clipped", Template{ActiveFrom: &activeFrom, ActiveTo: &activeTo}, "2025-08-10", "2025-08-20", true},
		{"starts after range", Template{ActiveFrom: &late}, "2025-09-10", "2025-08-31", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, e, ok := tt.tpl.ActiveWindow(from, to)
			if ok != tt.wantOK || f.String() != tt.wantFrom || e.String() != tt.wantTo {
				t.Errorf("ActiveWindow = %s, %s, %v; want %s, %s, %v", f, e, ok, tt.wantFrom, tt.wantTo, tt.wantOK)
			}
		})
	}
}

func TestTemplateConfig_AddBlackout(t *testing.T) {
	cfg := mustConfig(t, `{"exceptions": [{"date": "2025-12-25", "type": "override", "start_time": "08:00", "end_time": "09:00"}]}`)

	if cfg.AddBlackout(mustDate(t, "2025-12-25")) {
		t.Error("AddBlackout must not shadow an existing exception")
	}
	if !cfg.AddBlackout(mustDate(t, "2025-12-26")) {
		t.Error("expected blackout to be added")
	}
	if cfg.AddBlackout(mustDate(t, "2025-12-26")) {
		t.Error("second add of the same date must be a no-op")
	}
	if len(cfg.Exceptions) != 2 {
		t.Errorf("expected 2 exceptions, got %d", len(cfg.Exceptions))
	}
}
