package events

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CameraLookup reports whether a camera id is registered.
type CameraLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CameraCache remembers known camera ids for a bounded time. Misses always go
// to the backing lookup so freshly seeded cameras are seen immediately.
type CameraCache struct {
	backing CameraLookup
	cache   *lru.Cache[string, time.Time]
	ttl     time.Duration
}

func NewCameraCache(backing CameraLookup, maxKeys int, ttl time.Duration) *CameraCache {
	if maxKeys <= 0 {
		maxKeys = 256
	}
	c, _ := lru.New[string, time.Time](maxKeys)
	return &CameraCache{
		backing: backing,
		cache:   c,
		ttl:     ttl,
	}
}

func (c *CameraCache) Exists(ctx context.Context, id string) (bool, error) {
	if addedAt, ok := c.cache.Get(id); ok {
		if time.Since(addedAt) < c.ttl {
			return true, nil
		}
		c.cache.Remove(id)
	}

	ok, err := c.backing.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		c.cache.Add(id, time.Now())
	}
	return ok, nil
}
