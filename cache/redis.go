package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// L2 is a Redis-backed cache layer. All operations fail soft: if Redis is
// unavailable, methods return a miss (or silently discard the write) instead
// of surfacing the error to the caller.
type L2 struct {
	rdb    redis.UniversalClient
	prefix string
	loads  singleflight.Group
}

// L2Option configures an L2.
type L2Option func(*L2)

// WithPrefix namespaces every key with prefix.
func WithPrefix(prefix string) L2Option {
	return func(l *L2) { l.prefix = prefix }
}

// NewL2 creates a new Redis-backed L2 cache.
func NewL2(addr, password string, db int, opts ...L2Option) *L2 {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewL2FromClient(rdb, opts...)
}

// NewL2FromClient wraps an existing client, which may be a cluster or
// failover client. Close closes it.
func NewL2FromClient(rdb redis.UniversalClient, opts ...L2Option) *L2 {
	l := &L2{rdb: rdb}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Get retrieves a value by key. Returns (nil, false, nil) on a miss or when
// Redis is unreachable.
func (l *L2) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := l.rdb.Get(ctx, l.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		// Fail soft: treat connection errors as a miss.
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value under key with the given TTL. A zero TTL means the entry
// has no automatic expiration. Errors are silently discarded (fail soft).
func (l *L2) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_ = l.rdb.Set(ctx, l.prefix+key, val, ttl).Err()
	return nil
}

// Delete removes key. Errors are silently discarded (fail soft).
func (l *L2) Delete(ctx context.Context, key string) error {
	_ = l.rdb.Del(ctx, l.prefix+key).Err()
	return nil
}

// GetOrSet returns the cached value for key, loading it once on a miss.
// Concurrent callers in this process share one load.
func (l *L2) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok, _ := l.Get(ctx, key); ok {
		return v, nil
	}
	return loadOnce(ctx, &l.loads, key, loader, func(v []byte) {
		_ = l.Set(ctx, key, v, ttl)
	})
}

// Ping checks the Redis connection.
func (l *L2) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (l *L2) Close() error {
	return l.rdb.Close()
}
