package franklin

import (
	"sync"
	"time"
)

// cached is a single-value cache with a deadline and explicit invalidation.
// It replaces the ambient class-level caching the original app code leaned on.
type cached[T any] struct {
	mu      sync.Mutex
	value   T
	expires time.Time
	valid   bool
}

func (c *cached[T]) get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || time.Now().After(c.expires) {
		var zero T
		return zero, false
	}
	return c.value, true
}

func (c *cached[T]) set(v T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.expires = time.Now().Add(ttl)
	c.valid = true
}

func (c *cached[T]) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
