package contextx

import (
	"context"
	"slices"
)

// Actor represents the authenticated identity behind a request. It is
// typically populated by an authentication handler and stored in the
// request context via [WithActor]. Downstream handlers retrieve it with
// [ActorFromContext].
//
// Example:
//
//	actor := contextx.Actor{Subject: "user-42", Tenant: "acme"}
//	ctx = contextx.WithActor(ctx, actor)
type Actor struct {
	Subject  string
	Tenant   string
	ClientID string
	Scopes   []string
}

// HasScope reports whether the actor was granted scope.
func (a Actor) HasScope(scope string) bool {
	return slices.Contains(a.Scopes, scope)
}

// WithActor returns a derived context that carries the given Actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return actorKey.With(ctx, a)
}

// ActorFromContext extracts the Actor stored in ctx.
// The boolean return value indicates whether an Actor was present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	return actorKey.From(ctx)
}
