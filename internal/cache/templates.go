// Package cache puts a Redis read-through cache in front of the template store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"slot-service/internal/schedule"
)

// TemplateSource is the store the cache reads through to.
type TemplateSource interface {
	GetTemplate(ctx context.Context, tenantID, id string) (schedule.Template, bool, error)
	ListTemplates(ctx context.Context, tenantID string) ([]schedule.Template, error)
	CreateTemplate(ctx context.Context, t *schedule.Template) error
	UpdateTemplate(ctx context.Context, t *schedule.Template) (bool, error)
	DeleteTemplate(ctx context.Context, tenantID, id string) (bool, error)
}

// NewRedisClient connects to Redis and checks the connection. It returns
// nil when addr is empty.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// TemplateCache caches single-template reads. Writes go to the source and
// drop the cached entry. Redis failures are logged and never fail a call.
type TemplateCache struct {
	source TemplateSource
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTemplateCache returns a cache over source. A nil client disables
// caching and every call goes straight to source.
func NewTemplateCache(source TemplateSource, client *redis.Client, ttl time.Duration, logger *zap.Logger) *TemplateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateCache{source: source, client: client, ttl: ttl, logger: logger}
}

func templateKey(tenantID, id string) string {
	return "tpl:" + tenantID + ":" + id
}

func (c *TemplateCache) GetTemplate(ctx context.Context, tenantID, id string) (schedule.Template, bool, error) {
	if c.client == nil {
		return c.source.GetTemplate(ctx, tenantID, id)
	}
	key := templateKey(tenantID, id)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t schedule.Template
		if err := json.Unmarshal(data, &t); err == nil {
			return t, true, nil
		}
		c.logger.Warn("discarding unreadable cached template", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("template cache read failed", zap.String("key", key), zap.Error(err))
	}

	t, ok, err := c.source.GetTemplate(ctx, tenantID, id)
	if err != nil || !ok {
		return t, ok, err
	}
	// Templates with dropped entries skip the cache so every read still
	// reports them.
	if len(t.Config.Issues) == 0 {
		c.store(ctx, key, t)
	}
	return t, true, nil
}

func (c *TemplateCache) store(ctx context.Context, key string, t schedule.Template) {
	data, err := json.Marshal(t)
	if err != nil {
		c.logger.Warn("template cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("template cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *TemplateCache) invalidate(ctx context.Context, tenantID, id string) {
	if c.client == nil {
		return
	}
	key := templateKey(tenantID, id)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("template cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *TemplateCache) ListTemplates(ctx context.Context, tenantID string) ([]schedule.Template, error) {
	return c.source.ListTemplates(ctx, tenantID)
}

func (c *TemplateCache) CreateTemplate(ctx context.Context, t *schedule.Template) error {
	return c.source.CreateTemplate(ctx, t)
}

func (c *TemplateCache) UpdateTemplate(ctx context.Context, t *schedule.Template) (bool, error) {
	ok, err := c.source.UpdateTemplate(ctx, t)
	c.invalidate(ctx, t.TenantID, t.ID)
	return ok, err
}

func (c *TemplateCache) DeleteTemplate(ctx context.Context, tenantID, id string) (bool, error) {
	ok, err := c.source.DeleteTemplate(ctx, tenantID, id)
	c.invalidate(ctx, tenantID, id)
	return ok, err
}
