// Package cache provides a pluggable caching interface with an in-process
// L1 implementation backed by ristretto, a fail-soft Redis L2, a tiered
// combination of both, and a pipeline handler that memoizes the rest of a
// pipeline.
package cache

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is the caching contract shared by every layer.
type Cache interface {
	// Get retrieves a value by key. The boolean indicates a cache hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL. A zero TTL means the
	// entry has no automatic expiration.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetOrSet returns the cached value for key. On a cache miss it calls
	// loader exactly once across concurrent callers, stores the result, and
	// returns it.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) ([]byte, error)) ([]byte, error)
}

// Loader loads the value of a missing key.
type Loader func(context.Context) ([]byte, error)

// loadOnce runs loader through sf so concurrent misses for key share one
// load. A successful result is passed to store before it is returned.
// Every caller receives its own copy of the value.
func loadOnce(ctx context.Context, sf *singleflight.Group, key string, loader Loader, store func([]byte)) ([]byte, error) {
	v, err, _ := sf.Do(key, func() (any, error) {
		val, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		store(val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v.([]byte)), nil
}
