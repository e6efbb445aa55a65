// Package contextx stores request-scoped values in a context.Context under
// typed keys, so handlers of one pipeline can hand data to each other
// without sharing globals.
package contextx

import "context"

// Key identifies a value of type T in a context. Two keys never collide,
// even when they share a name; the name only shows up in String.
type Key[T any] struct {
	name *string
}

// NewKey returns a new key. The name is informational.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: &name}
}

// String returns the key's name.
func (k Key[T]) String() string {
	if k.name == nil {
		return "contextx.Key(<nil>)"
	}
	return "contextx.Key(" + *k.name + ")"
}

// With returns a derived context that carries v under k.
func (k Key[T]) With(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, k, v)
}

// From extracts the value stored under k. The boolean reports whether a
// value was present.
func (k Key[T]) From(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// Get is like From but returns the zero T when no value is present.
func (k Key[T]) Get(ctx context.Context) T {
	v, _ := k.From(ctx)
	return v
}

var (
	actorKey     = NewKey[Actor]("actor")
	requestIDKey = NewKey[string]("request-id")
	groupKey     = NewKey[string]("group")
)

// Carrier is implemented by pipeline values that carry a request context
// which handlers may replace for the rest of the run.
type Carrier interface {
	Context() context.Context
	WithContext(ctx context.Context)
}
