// Package view keeps rendered read views and lets writers mark them stale so
// the next fetch recomputes from the record store.
package view

import "context"

// Views invalidated by appointment writes.
const (
	Dashboard = "dashboard"
	Landing   = "landing"
)

// Invalidator marks a named view stale. Invalidating an already stale view is
// a no-op, so callers may invalidate freely.
type Invalidator interface {
	Invalidate(ctx context.Context, name string) error
}

type ComputeFunc func(ctx context.Context) ([]byte, error)

// Cache serves renders until they are invalidated or expire.
type Cache interface {
	Invalidator
	Fetch(ctx context.Context, name string, compute ComputeFunc) ([]byte, error)
	IsStale(ctx context.Context, name string) (bool, error)
}
