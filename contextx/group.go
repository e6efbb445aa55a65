package contextx

import "context"

// WithGroup returns a derived context that carries the name of the policy
// group the request resolved to.
func WithGroup(ctx context.Context, group string) context.Context {
	return groupKey.With(ctx, group)
}

// GroupFromContext returns the group name stored in ctx, or "" when none is
// present.
func GroupFromContext(ctx context.Context) string {
	return groupKey.Get(ctx)
}
