package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"slot-service/internal/schedule"
	"slot-service/internal/schedule/schedtest"
)

func testTemplate(t *testing.T, raw string) schedule.Template {
	t.Helper()
	cfg, err := schedule.DecodeConfig([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	return schedule.Template{ID: "tpl", TenantID: "tenant-a", Name: "weekly", Config: cfg}
}

func TestTemplateKey(t *testing.T) {
	if got := templateKey("tenant-a", "tpl-1"); got != "tpl:tenant-a:tpl-1" {
		t.Errorf("templateKey = %q", got)
	}
}

func TestTemplateCache_DisabledPassesThrough(t *testing.T) {
	source := schedtest.NewMemTemplates(testTemplate(t, `{"weekdays": {"mon": {"enabled": true}}}`))
	c := NewTemplateCache(source, nil, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tpl, ok, err := c.GetTemplate(ctx, "tenant-a", "tpl")
		if err != nil || !ok || tpl.Name != "weekly" {
			t.Fatalf("GetTemplate = %+v, %v, %v", tpl, ok, err)
		}
	}
	if source.Gets != 3 {
		t.Errorf("source reads = %d, want 3", source.Gets)
	}

	if _, ok, _ := c.GetTemplate(ctx, "tenant-b", "tpl"); ok {
		t.Error("tenant scoping must be preserved")
	}

	tpl, _, _ := c.GetTemplate(ctx, "tenant-a", "tpl")
	tpl.Name = "renamed"
	if ok, err := c.UpdateTemplate(ctx, &tpl); err != nil || !ok {
		t.Fatalf("UpdateTemplate = %v, %v", ok, err)
	}
	if ok, err := c.DeleteTemplate(ctx, "tenant-a", "tpl"); err != nil || !ok {
		t.Fatalf("DeleteTemplate = %v, %v", ok, err)
	}
}

func TestTemplateCache_RedisDownFallsBackToSource(t *testing.T) {
	source := schedtest.NewMemTemplates(testTemplate(t, `{"weekdays": {"mon": {"enabled": true}}}`))
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	c := NewTemplateCache(source, client, time.Minute, zap.New(core))
	ctx := context.Background()

	tpl, ok, err := c.GetTemplate(ctx, "tenant-a", "tpl")
	if err != nil || !ok {
		t.Fatalf("GetTemplate = %v, %v; want the source's template", ok, err)
	}
	if tpl.Name != "weekly" || len(tpl.Config.Weekdays) != 1 {
		t.Errorf("template = %+v", tpl)
	}
	if source.Gets != 1 {
		t.Errorf("source reads = %d, want 1", source.Gets)
	}
	if logs.FilterMessage("template cache read failed").Len() == 0 {
		t.Error("expected the cache read failure to be logged")
	}

	tpl.Name = "renamed"
	if ok, err := c.UpdateTemplate(ctx, &tpl); err != nil || !ok {
		t.Fatalf("UpdateTemplate = %v, %v", ok, err)
	}
	if logs.FilterMessage("template cache invalidation failed").Len() == 0 {
		t.Error("expected the invalidation failure to be logged")
	}
	got, _, _ := c.GetTemplate(ctx, "tenant-a", "tpl")
	if got.Name != "renamed" {
		t.Errorf("read after update = %q", got.Name)
	}
}

func TestNewRedisClient_EmptyAddrDisables(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	if err != nil || client != nil {
		t.Errorf("NewRedisClient(\"\") = %v, %v; want nil, nil", client, err)
	}
}
