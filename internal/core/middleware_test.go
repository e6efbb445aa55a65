package core

import (
	"slices"
	"testing"
)

func TestStackBuildSortsByOrder(t *testing.T) {
	var s Stack[string]
	s.Add(300, "C")
	s.Add(100, "A")
	s.Add(200, "B")

	got := s.Build()
	if !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("got %v, want [A B C]", got)
	}
}

func TestStackBuildStableForSameOrder(t *testing.T) {
	var s Stack[string]
	s.Add(100, "first")
	s.Add(100, "second")
	s.Add(50, "zeroth")
	s.Add(100, "third")

	got := s.Build()
	want := []string{"zeroth", "first", "second", "third"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStackBuildLeavesEntriesUntouched(t *testing.T) {
	var s Stack[int]
	s.Add(2, 20)
	s.Add(1, 10)

	_ = s.Build()
	s.Add(0, 0)

	got := s.Build()
	if !slices.Equal(got, []int{0, 10, 20}) {
		t.Fatalf("got %v, want [0 10 20]", got)
	}
	if s.Len() != 3 {
		t.Fatalf("expected Len 3, got %d", s.Len())
	}
}

func TestBuildServerOptionsSkipsNil(t *testing.T) {
	if opts := BuildServerOptions(nil, nil); len(opts) != 0 {
		t.Fatalf("expected no options, got %d", len(opts))
	}
}
