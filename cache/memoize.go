package cache

import (
	"context"
	"time"

	gorawronion "github.com/Keksclan/goRawrOnion"
)

// KeyFunc derives the cache key of a pipeline run. ok=false bypasses the
// cache for that run.
type KeyFunc[C any] func(c C) (ctx context.Context, key string, ok bool)

// Memoize returns a pipeline handler that serves the result of the rest of
// the pipeline from store. On a miss next runs once, even for concurrent
// runs with the same key; those runs share its result and never call next
// themselves. Errors are not cached.
func Memoize[C any](store Cache, ttl time.Duration, key KeyFunc[C]) gorawronion.Handler[C, []byte] {
	return func(c C, next gorawronion.Next[[]byte]) ([]byte, error) {
		ctx, k, ok := key(c)
		if !ok {
			return next()
		}
		return store.GetOrSet(ctx, k, ttl, func(context.Context) ([]byte, error) {
			return next()
		})
	}
}
