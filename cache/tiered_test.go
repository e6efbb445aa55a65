package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTiered_FarHitPromotesToNear(t *testing.T) {
	near, far := mustNewL1(t), mustNewL1(t)
	tc := NewTiered(near, far)
	ctx := t.Context()

	_ = far.Set(ctx, "k", []byte("from-far"), 0)

	v, ok, err := tc.Get(ctx, "k")
	if err != nil || !ok || string(v) != "from-far" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if v, ok, _ := near.Get(ctx, "k"); !ok || string(v) != "from-far" {
		t.Fatalf("near after promotion = %q, %v", v, ok)
	}
}

func TestTiered_GetOrSetWritesBothLayers(t *testing.T) {
	near, far := mustNewL1(t), mustNewL1(t)
	tc := NewTiered(near, far)
	ctx := t.Context()

	var calls atomic.Int32
	loader := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("loaded"), nil
	}

	for range 3 {
		v, err := tc.GetOrSet(ctx, "k", time.Minute, loader)
		if err != nil || string(v) != "loaded" {
			t.Fatalf("GetOrSet = %q, %v", v, err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
	if _, ok, _ := near.Get(ctx, "k"); !ok {
		t.Fatal("expected value in near")
	}
	if _, ok, _ := far.Get(ctx, "k"); !ok {
		t.Fatal("expected value in far")
	}

	if err := tc.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := tc.Get(ctx, "k"); ok {
		t.Fatal("expected miss after Delete")
	}
}
