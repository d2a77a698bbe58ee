// Package store holds TemplateSource implementations backed by Postgres and a
// Redis read-through cache that decorates any source.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"madlibs-stories/internal/common/config"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/common/metrics"
	"madlibs-stories/internal/story"

	"github.com/redis/go-redis/v9"
)

const (
	kindTemplate = "template"
	kindPrompt   = "prompt"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// CachedSource caches template and prompt lookups in Redis. Listings and
// site settings always go to the wrapped source. Redis failures are logged
// and the lookup falls through to the source.
type CachedSource struct {
	next   story.TemplateSource
	redis  redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

var _ story.TemplateSource = (*CachedSource)(nil)

func NewCachedSource(next story.TemplateSource, rdb redis.Cmdable, cfg config.CacheConfig, log logger.Logger) *CachedSource {
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "madlibs"
	}
	return &CachedSource{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "template-cache"}),
	}
}

func (c *CachedSource) templateKey(slug string) string {
	return c.prefix + ":template:" + slug
}

func (c *CachedSource) promptKey(templateID string) string {
	return c.prefix + ":prompt:" + templateID
}

func (c *CachedSource) FetchTemplate(ctx context.Context, slug string) (*story.Template, error) {
	var tmpl story.Template
	if c.get(ctx, kindTemplate, c.templateKey(slug), &tmpl) {
		return &tmpl, nil
	}

	fetched, err := c.next.FetchTemplate(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.set(ctx, c.templateKey(slug), fetched)
	return fetched, nil
}

func (c *CachedSource) FetchPromptForTemplate(ctx context.Context, templateID string) (*story.StoryPrompt, error) {
	var prompt story.StoryPrompt
	if c.get(ctx, kindPrompt, c.promptKey(templateID), &prompt) {
		return &prompt, nil
	}

	fetched, err := c.next.FetchPromptForTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, c.promptKey(templateID), fetched)
	return fetched, nil
}

func (c *CachedSource) ListTemplates(ctx context.Context) ([]story.Template, error) {
	return c.next.ListTemplates(ctx)
}

func (c *CachedSource) FetchSiteSettings(ctx context.Context) (*story.SiteSettings, error) {
	return c.next.FetchSiteSettings(ctx)
}

// Flush deletes every entry under the cache prefix and returns how many
// keys were removed. Call it after the wrapped source changes.
func (c *CachedSource) Flush(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, c.prefix+":*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %s keys: %w", c.prefix, err)
		}
		if len(keys) > 0 {
			n, err := c.redis.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete %s keys: %w", c.prefix, err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (c *CachedSource) get(ctx context.Context, kind, key string, dst interface{}) bool {
	val, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil):
		metrics.TemplateCacheLookups.WithLabelValues(kind, resultMiss).Inc()
		return false
	default:
		metrics.TemplateCacheLookups.WithLabelValues(kind, resultError).Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		return false
	}

	if err := json.Unmarshal(val, dst); err != nil {
		metrics.TemplateCacheLookups.WithLabelValues(kind, resultError).Inc()
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key, "error": err})
		return false
	}
	metrics.TemplateCacheLookups.WithLabelValues(kind, resultHit).Inc()
	return true
}

func (c *CachedSource) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}
