// Package gorawronion composes handlers into onion pipelines: each handler
// runs some logic, optionally delegates to the rest of the pipeline through
// its next continuation, and runs more logic once next returns.
//
// A composed pipeline is itself a Handler, so pipelines nest:
//
//	auth := gorawronion.MustCompose(authenticate, authorize)
//	api := gorawronion.MustCompose(recoverPanics, auth, serve)
//	res, err := gorawronion.Run(api, req)
package gorawronion

import (
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
)

// Next continues the pipeline with the handler that follows the current one
// and returns whatever that handler returns.
type Next[R any] func() (R, error)

// Handler is one link of a pipeline. It receives the value shared by every
// handler of a single run and the continuation to the rest of the pipeline.
// A handler may call next once, or not at all to stop the run.
type Handler[C, R any] func(c C, next Next[R]) (R, error)

// Handle calls h(c, next). It makes every Handler a Middleware.
func (h Handler[C, R]) Handle(c C, next Next[R]) (R, error) {
	return h(c, next)
}

// Middleware is implemented by types that can act as a pipeline link.
type Middleware[C, R any] interface {
	Handle(c C, next Next[R]) (R, error)
}

// Compose returns a Handler that runs handlers in order. Calling the result
// with a nil next uses a continuation that returns the zero R and no error;
// otherwise next runs after the last handler delegates.
//
// The handlers slice is copied, so changing it afterwards has no effect on
// the returned pipeline. Compose fails with ErrNotFunction if any handler is
// nil. It never calls a handler.
func Compose[C, R any](handlers ...Handler[C, R]) (Handler[C, R], error) {
	stack := slices.Clone(handlers)
	for i, h := range stack {
		if h == nil {
			return nil, fmt.Errorf("%w: handler %d is nil", ErrNotFunction, i)
		}
	}

	return func(c C, next Next[R]) (R, error) {
		inv := &invocation[C, R]{stack: stack, c: c, terminal: next}
		inv.cursor.Store(-1)
		return inv.dispatch(0)
	}, nil
}

// MustCompose is like Compose but panics if the handlers are invalid.
func MustCompose[C, R any](handlers ...Handler[C, R]) Handler[C, R] {
	h, err := Compose(handlers...)
	if err != nil {
		panic(err)
	}
	return h
}

// ComposeAny composes a stack whose shape is only known at runtime. The stack
// must be a slice or an array; each element must be a Handler[C, R], a
// func(C, Next[R]) (R, error) or a non-nil Middleware[C, R].
func ComposeAny[C, R any](stack any) (Handler[C, R], error) {
	v := reflect.ValueOf(stack)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: got %T", ErrNotSequence, stack)
	}

	handlers := make([]Handler[C, R], v.Len())
	for i := range v.Len() {
		elem := v.Index(i).Interface()
		h, ok := asHandler[C, R](elem)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T", ErrNotFunction, i, elem)
		}
		handlers[i] = h
	}
	return Compose(handlers...)
}

// Run invokes h with c and the default terminal continuation.
func Run[C, R any](h Handler[C, R], c C) (R, error) {
	return h(c, nil)
}

// invocation is the dispatch state of one pipeline run. It is allocated per
// call so concurrent and repeated runs never share a cursor.
type invocation[C, R any] struct {
	stack    []Handler[C, R]
	c        C
	terminal Next[R]
	cursor   atomic.Int64 // highest position dispatched so far
}

func (inv *invocation[C, R]) dispatch(i int) (R, error) {
	for {
		last := inv.cursor.Load()
		if int64(i) <= last {
			var zero R
			return zero, ErrMultipleNext
		}
		if inv.cursor.CompareAndSwap(last, int64(i)) {
			break
		}
	}

	switch {
	case i < len(inv.stack):
		return inv.stack[i](inv.c, func() (R, error) {
			return inv.dispatch(i + 1)
		})
	case i == len(inv.stack) && inv.terminal != nil:
		return inv.terminal()
	default:
		var zero R
		return zero, nil
	}
}

func asHandler[C, R any](v any) (Handler[C, R], bool) {
	switch h := v.(type) {
	case Handler[C, R]:
		return h, h != nil
	case func(C, Next[R]) (R, error):
		return h, h != nil
	case Middleware[C, R]:
		if isNil(h) {
			return nil, false
		}
		return h.Handle, true
	}
	return nil, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
