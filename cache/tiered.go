package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Tiered combines a fast near cache with a shared far cache, typically an
// L1 in front of an L2. Reads check near first, then far, then the loader.
// Writes populate both layers.
type Tiered struct {
	near  Cache
	far   Cache
	loads singleflight.Group
}

// NewTiered creates a two-level cache.
func NewTiered(near, far Cache) *Tiered {
	return &Tiered{near: near, far: far}
}

// Get checks near, then far. A far hit is promoted into near with zero TTL
// since the original TTL is unknown.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.near.Get(ctx, key); err != nil || ok {
		return v, ok, err
	}
	v, ok, err := t.far.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.near.Set(ctx, key, v, 0)
	return v, true, nil
}

// Set writes the value to far, then near.
func (t *Tiered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_ = t.far.Set(ctx, key, val, ttl)
	return t.near.Set(ctx, key, val, ttl)
}

// Delete removes key from both layers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	_ = t.far.Delete(ctx, key)
	return t.near.Delete(ctx, key)
}

// GetOrSet follows the near, far, loader order, deduplicating concurrent
// loads for the same key. A far hit is promoted into near with ttl.
func (t *Tiered) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok, _ := t.near.Get(ctx, key); ok {
		return v, nil
	}
	if v, ok, _ := t.far.Get(ctx, key); ok {
		_ = t.near.Set(ctx, key, v, ttl)
		return v, nil
	}
	return loadOnce(ctx, &t.loads, key, loader, func(v []byte) {
		_ = t.Set(ctx, key, v, ttl)
	})
}
