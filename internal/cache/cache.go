// Package cache holds the process-wide query cache for listing and detail reads.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultTTL is the retention for cached reads when no TTL is configured.
	DefaultTTL  = 12 * time.Hour
	defaultSize = 512
)

// Config configures a QueryCache.
type Config struct {
	Size int
	TTL  time.Duration
}

// QueryCache is an expiring LRU keyed by entity-type specific cache keys.
// A nil *QueryCache is valid and caches nothing.
type QueryCache struct {
	entries *expirable.LRU[string, any]
}

// New constructs a QueryCache with defaults applied.
func New(cfg Config) *QueryCache {
	size := cfg.Size
	if size <= 0 {
		size = defaultSize
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{entries: expirable.NewLRU[string, any](size, nil, ttl)}
}

// ListKey addresses the full ordered listing of a collection.
func ListKey(collection string) string {
	return collection + ":list"
}

// DetailKey addresses a single record.
func DetailKey(collection, id string) string {
	return collection + ":detail:" + id
}

// QueryKey addresses a filtered listing; parts are joined verbatim.
func QueryKey(collection string, parts ...string) string {
	return collection + ":query:" + strings.Join(parts, "|")
}

// CollectionPrefix matches every key of a collection.
func CollectionPrefix(collection string) string {
	return collection + ":"
}

// Get returns a cached value.
func (c *QueryCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

// Set stores value under key.
func (c *QueryCache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.entries.Add(key, value)
}

// Invalidate drops the provided keys.
func (c *QueryCache) Invalidate(keys ...string) {
	if c == nil {
		return
	}
	for _, key := range keys {
		c.entries.Remove(key)
	}
}

// InvalidatePrefix drops every key starting with prefix and returns how many were removed.
func (c *QueryCache) InvalidatePrefix(prefix string) int {
	if c == nil {
		return 0
	}
	removed := 0
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) && c.entries.Remove(key) {
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// GetOrLoad returns the cached value for key or loads, stores and returns it.
// Load errors are not cached.
func GetOrLoad[V any](ctx context.Context, c *QueryCache, key string, load func(context.Context) (V, error)) (V, error) {
	if cached, ok := c.Get(key); ok {
		if value, ok := cached.(V); ok {
			return value, nil
		}
	}
	value, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, value)
	return value, nil
}
