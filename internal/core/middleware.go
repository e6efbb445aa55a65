package core

import (
	"cmp"
	"slices"
)

// entry is a single handler with a deterministic execution order. Lower
// Order values run first.
type entry[T any] struct {
	Handler T
	Order   int
}

// Stack collects handlers with priorities and produces them in execution
// order, ready to be composed.
type Stack[T any] struct {
	entries []entry[T]
}

// Add registers h with the given order.
func (s *Stack[T]) Add(order int, h T) {
	s.entries = append(s.entries, entry[T]{Handler: h, Order: order})
}

// Len reports how many handlers have been added.
func (s *Stack[T]) Len() int {
	return len(s.entries)
}

// Build returns the handlers sorted by Order. Handlers sharing an order keep
// the order they were added in. The stack itself is left untouched.
func (s *Stack[T]) Build() []T {
	sorted := slices.Clone(s.entries)
	slices.SortStableFunc(sorted, func(a, b entry[T]) int {
		return cmp.Compare(a.Order, b.Order)
	})

	out := make([]T, len(sorted))
	for i, e := range sorted {
		out[i] = e.Handler
	}
	return out
}
