package index

import (
	"context"
	"math"
	"slices"
	"sync"
)

// VectorIndex does exact cosine nearest-neighbor search over document
// embeddings. Safe for concurrent use.
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

// NewVectorIndex creates an empty VectorIndex.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{entries: make(map[string][]float32)}
}

// Add stores the embedding for a document, replacing any previous one.
func (v *VectorIndex) Add(id string, embedding []float32) {
	v.mu.Lock()
	v.entries[id] = slices.Clone(embedding)
	v.mu.Unlock()
}

// Remove drops a document's embedding.
func (v *VectorIndex) Remove(id string) {
	v.mu.Lock()
	delete(v.entries, id)
	v.mu.Unlock()
}

// Len returns the number of indexed embeddings.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Search returns the top-N documents by cosine similarity to query,
// score descending with ties broken by document ID. An empty index or
// zero query yields zero hits.
func (v *VectorIndex) Search(_ context.Context, query []float32, topN int) ([]Hit, error) {
	if topN <= 0 || len(query) == 0 {
		return nil, nil
	}

	v.mu.RLock()
	hits := make([]Hit, 0, len(v.entries))
	for id, vec := range v.entries {
		sim := cosine(query, vec)
		hits = append(hits, Hit{DocumentID: id, Score: sim})
	}
	v.mu.RUnlock()

	sortHits(hits)
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

// cosine returns the cosine similarity of a and b. Mismatched lengths
// and zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
