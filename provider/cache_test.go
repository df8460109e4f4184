package provider

import (
	"context"
	"errors"
	"testing"
)

type countingEmbedder struct {
	calls int
	vec   []float32
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func TestCachingEmbedder_Memoizes(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1, 2}}
	cache := NewCachingEmbedder(inner, 10)

	for range 3 {
		vec, err := cache.Embed(context.Background(), "same text")
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		if len(vec) != 2 {
			t.Fatalf("vec length = %d, want 2", len(vec))
		}
	}

	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache size = %d, want 1", cache.Len())
	}
}

func TestCachingEmbedder_ErrorsNotCached(t *testing.T) {
	inner := &countingEmbedder{err: ErrUnavailable}
	cache := NewCachingEmbedder(inner, 10)

	for range 2 {
		if _, err := cache.Embed(context.Background(), "text"); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	}

	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2 (errors must not be cached)", inner.calls)
	}
}

func TestCachingEmbedder_ReturnedSliceIsIsolated(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1, 2}}
	cache := NewCachingEmbedder(inner, 10)

	first, _ := cache.Embed(context.Background(), "text")
	first[0] = 99

	second, _ := cache.Embed(context.Background(), "text")
	if second[0] != 1 {
		t.Fatalf("cached vector mutated by caller: %v", second)
	}
}

func TestCachingEmbedder_EvictsWhenFull(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1}}
	cache := NewCachingEmbedder(inner, 2)

	_, _ = cache.Embed(context.Background(), "a")
	_, _ = cache.Embed(context.Background(), "b")
	_, _ = cache.Embed(context.Background(), "c")

	if cache.Len() > 2 {
		t.Fatalf("cache size = %d, want <= 2", cache.Len())
	}
}

func TestCachingEmbedder_Invalidate(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1}}
	cache := NewCachingEmbedder(inner, 10)

	_, _ = cache.Embed(context.Background(), "text")
	cache.Invalidate("text")
	_, _ = cache.Embed(context.Background(), "text")

	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2 after invalidation", inner.calls)
	}
}
