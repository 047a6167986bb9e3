package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ckg-backend/pkg/observability"
)

// QueryCache provides an in-memory TTL cache for query results, indexed
// per project so ingestion can invalidate every entry of a project in one
// call.
type QueryCache struct {
	mu          sync.RWMutex
	items       map[string]cacheItem
	projectKeys map[string]map[string]struct{}
	defaultTTL  time.Duration
	metrics     *observability.Metrics
	logger      *zap.Logger
	stop        chan struct{}
	stopOnce    sync.Once
}

type cacheItem struct {
	value      interface{}
	projectKey string
	expiresAt  time.Time
}

// NewQueryCache creates a new query cache and starts its cleanup loop
func NewQueryCache(defaultTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger) *QueryCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	cache := &QueryCache{
		items:       make(map[string]cacheItem),
		projectKeys: make(map[string]map[string]struct{}),
		defaultTTL:  defaultTTL,
		metrics:     metrics,
		logger:      logger,
		stop:        make(chan struct{}),
	}

	go cache.cleanupExpired()

	return cache
}

// Get retrieves a value from the cache
func (c *QueryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		return nil, false
	}

	return item.value, true
}

// Set stores a value under the given project key. A non-positive TTL falls
// back to the cache default.
func (c *QueryCache) Set(ctx context.Context, key, projectKey string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:      value,
		projectKey: projectKey,
		expiresAt:  time.Now().Add(ttl),
	}

	keys, ok := c.projectKeys[projectKey]
	if !ok {
		keys = make(map[string]struct{})
		c.projectKeys[projectKey] = keys
	}
	keys[key] = struct{}{}
}

// InvalidateProject drops every cached entry of one project and returns
// how many entries were removed
func (c *QueryCache) InvalidateProject(ctx context.Context, projectKey string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.projectKeys[projectKey]
	if !ok {
		return 0
	}

	for key := range keys {
		delete(c.items, key)
	}
	removed := len(keys)
	delete(c.projectKeys, projectKey)

	if removed > 0 {
		c.metrics.CacheEvictions.Add(float64(removed))
		c.logger.Debug("invalidated project cache entries",
			zap.String("project_key", projectKey),
			zap.Int("entries", removed),
		)
	}

	return removed
}

// Clear removes all cached entries
func (c *QueryCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	c.projectKeys = make(map[string]map[string]struct{})
}

// Stop terminates the cleanup loop
func (c *QueryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanupExpired periodically removes expired items
func (c *QueryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		now := time.Now()
		evicted := 0
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
				if keys, ok := c.projectKeys[item.projectKey]; ok {
					delete(keys, key)
					if len(keys) == 0 {
						delete(c.projectKeys, item.projectKey)
					}
				}
				evicted++
			}
		}
		c.mu.Unlock()

		if evicted > 0 {
			c.metrics.CacheEvictions.Add(float64(evicted))
		}
	}
}
