package contextx

import "context"

// WithRequestID returns a derived context that carries the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return requestIDKey.With(ctx, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "" when none
// is present.
func RequestIDFromContext(ctx context.Context) string {
	return requestIDKey.Get(ctx)
}
