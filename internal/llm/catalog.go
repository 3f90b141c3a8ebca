package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Catalog caches the provider's model list. Concurrent misses share one
// fetch; entries expire after ttl.
type Catalog struct {
	fetch func(ctx context.Context) ([]string, error)
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	models    []string
	fetchedAt time.Time
}

// NewCatalog wraps fetch with a ttl cache. A non-positive ttl disables caching.
func NewCatalog(fetch func(ctx context.Context) ([]string, error), ttl time.Duration) *Catalog {
	return &Catalog{fetch: fetch, ttl: ttl, now: time.Now}
}

// Models returns the cached list, refreshing it when stale.
func (c *Catalog) Models(ctx context.Context) ([]string, error) {
	if models, ok := c.cached(); ok {
		return models, nil
	}

	v, err, _ := c.group.Do("models", func() (any, error) {
		if models, ok := c.cached(); ok {
			return models, nil
		}
		models, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.models = models
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Has reports whether model appears in the provider's list.
func (c *Catalog) Has(ctx context.Context, model string) (bool, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m == model {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) cached() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.models == nil || c.ttl <= 0 || c.now().Sub(c.fetchedAt) > c.ttl {
		return nil, false
	}
	return c.models, true
}
