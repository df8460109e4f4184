package provider

import (
	"context"
	"slices"
	"sync"
)

// DefaultCacheEntries is the default capacity of a CachingEmbedder.
const DefaultCacheEntries = 4096

// CachingEmbedder memoizes embeddings by input text. It is safe for
// concurrent use. When the cache is full, an arbitrary entry is evicted;
// the cache is a recall optimization, not a correctness requirement.
type CachingEmbedder struct {
	inner Embedder

	mu         sync.RWMutex
	cache      map[string][]float32
	maxEntries int
}

// NewCachingEmbedder wraps an Embedder with a memoizing cache.
// maxEntries <= 0 uses DefaultCacheEntries.
func NewCachingEmbedder(inner Embedder, maxEntries int) *CachingEmbedder {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &CachingEmbedder{
		inner:      inner,
		cache:      make(map[string][]float32, maxEntries),
		maxEntries: maxEntries,
	}
}

// Embed implements Embedder. Identical inputs hit the cache.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.inner == nil {
		return nil, ErrInvalidConfig
	}

	c.mu.RLock()
	cached, ok := c.cache[text]
	c.mu.RUnlock()
	if ok {
		return slices.Clone(cached), nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.cache) >= c.maxEntries {
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}
	c.cache[text] = slices.Clone(vec)
	c.mu.Unlock()

	return vec, nil
}

// Len returns the number of cached entries.
func (c *CachingEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Invalidate drops the cached embedding for the given text.
func (c *CachingEmbedder) Invalidate(text string) {
	c.mu.Lock()
	delete(c.cache, text)
	c.mu.Unlock()
}
