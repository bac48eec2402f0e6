package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"slot-service/internal/app"
	"slot-service/internal/schedule"
	"slot-service/internal/schedule/schedtest"
)

func useMemoryApp(t *testing.T) *schedtest.MemStore {
	t.Helper()
	cfg, err := schedule.DecodeConfig([]byte(mondayTemplate))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	slots := schedtest.NewMemStore()
	a := &app.App{
		Slots:     slots,
		Templates: schedtest.NewMemTemplates(schedule.Template{ID: "tpl", TenantID: "t1", Name: "tpl", Config: cfg}),
		Logger:    zap.NewNop(),
		Location:  time.UTC,
	}

	prev := openApp
	openApp = func(ctx context.Context) (*app.App, func(), error) {
		return a, func() {}, nil
	}
	t.Cleanup(func() { openApp = prev })
	return slots
}

func TestPreviewThenPublish(t *testing.T) {
	slots := useMemoryApp(t)
	args := []string{"--json=false", "--tz=", "--template", "tpl", "--tenant", "t1", "--from", "2025-08-18", "--to", "2025-08-24"}

	out, err := execute(t, append([]string{"preview"}, args...)...)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(out, "Would publish: 4 created, 0 updated, 0 unchanged") {
		t.Errorf("preview output:\n%s", out)
	}
	if !strings.Contains(out, "create") {
		t.Errorf("preview should list sample rows:\n%s", out)
	}
	if n := len(slots.Slots("t1")); n != 0 {
		t.Fatalf("preview wrote %d slots", n)
	}

	out, err = execute(t, append([]string{"publish"}, args...)...)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(out, "Published: 4 created, 0 updated, 0 skipped") {
		t.Errorf("publish output:\n%s", out)
	}
	if n := len(slots.Slots("t1")); n != 4 {
		t.Errorf("stored %d slots, want 4", n)
	}

	out, err = execute(t, append([]string{"publish", "--json"}, args[1:]...)...)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	var res app.ApplyTemplateResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Created != 0 || res.Updated != 4 {
		t.Errorf("second publish = %+v", res)
	}
}

func TestPublish_UnknownTemplate(t *testing.T) {
	useMemoryApp(t)
	_, err := execute(t, "publish", "--json=false", "--tz=", "--template", "missing", "--tenant", "t1", "--from", "2025-08-18", "--to", "2025-08-24")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestPrintApplyResult(t *testing.T) {
	tests := []struct {
		name string
		res  app.ApplyTemplateResult
		want string
	}{
		{"publish", app.ApplyTemplateResult{Updated: 4}, "Published: 0 created, 4 updated, 0 skipped\n"},
		{"preview", app.ApplyTemplateResult{Preview: true, Skipped: 4, Samples: schedule.NewDiffResult()}, "Would publish: 0 created, 0 updated, 4 unchanged\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			if err := printApplyResult(&buf, tt.res); err != nil {
				t.Fatalf("printApplyResult: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
