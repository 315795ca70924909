package view

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	stale    bool
	render   []byte
	storedAt time.Time
	gen      uint64
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.Mutex
	views map[string]*entry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		views: make(map[string]*entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *MemoryCache) Invalidate(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(name)
	e.stale = true
	e.render = nil
	e.gen++
	return nil
}

func (c *MemoryCache) IsStale(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.views[name]
	return !ok || !c.fresh(e), nil
}

func (c *MemoryCache) Fetch(ctx context.Context, name string, compute ComputeFunc) ([]byte, error) {
	c.mu.Lock()
	e := c.entry(name)
	if c.fresh(e) {
		out := append([]byte(nil), e.render...)
		c.mu.Unlock()
		return out, nil
	}
	gen := e.gen
	c.mu.Unlock()

	data, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// An invalidation during compute wins; the render is returned but not kept.
	if e.gen == gen {
		e.render = append([]byte(nil), data...)
		e.storedAt = c.now()
		e.stale = false
	}
	c.mu.Unlock()

	return data, nil
}

func (c *MemoryCache) entry(name string) *entry {
	e, ok := c.views[name]
	if !ok {
		e = &entry{stale: true}
		c.views[name] = e
	}
	return e
}

func (c *MemoryCache) fresh(e *entry) bool {
	if e.stale || e.render == nil {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(e.storedAt) < c.ttl
}
