package routing

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolrouting/model"
	"github.com/jonwraymond/toolrouting/provider"
	"github.com/jonwraymond/toolrouting/registry"
)

// DefaultSimilarityThreshold is the minimum cosine similarity a tool
// description must reach for a semantic match.
const DefaultSimilarityThreshold = 0.65

// SemanticMatcher classifies requests by embedding similarity against
// each tool's description. It is the fallback strategy when rule
// matching yields nothing. Embedding calls are the only external
// boundary; when the provider is unavailable the matcher degrades to
// "no match" instead of failing, so the router can still answer
// deterministically.
type SemanticMatcher struct {
	embedder provider.Embedder
	logger   *zap.Logger

	mu        sync.RWMutex
	threshold float64
}

// NewSemanticMatcher creates a SemanticMatcher. Wrap the embedder in a
// provider.CachingEmbedder so tool description embeddings are computed
// once per process. threshold <= 0 uses DefaultSimilarityThreshold;
// logger may be nil.
func NewSemanticMatcher(embedder provider.Embedder, threshold float64, logger *zap.Logger) *SemanticMatcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticMatcher{
		embedder:  embedder,
		logger:    logger,
		threshold: threshold,
	}
}

// Threshold returns the current similarity threshold.
func (m *SemanticMatcher) Threshold() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threshold
}

// UpdateThreshold replaces the similarity threshold. Values outside
// [0,1] are rejected.
func (m *SemanticMatcher) UpdateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be in [0,1], got %v", threshold)
	}
	m.mu.Lock()
	m.threshold = threshold
	m.mu.Unlock()
	return nil
}

// Match embeds the request and compares it against every tool's
// description embedding. The maximum similarity wins when it clears the
// threshold; otherwise the result is unmatched and carries the best
// similarity observed for auditing. Provider failures degrade to an
// unmatched result, never an error.
func (m *SemanticMatcher) Match(ctx context.Context, request string, snap *registry.Snapshot) (model.MatchResult, error) {
	none := model.MatchResult{Method: model.MethodNone}
	if m.embedder == nil || snap.Len() == 0 {
		return none, nil
	}

	queryVec, err := m.embedder.Embed(ctx, request)
	if err != nil {
		m.logger.Warn("request embedding failed, declining semantic match", zap.Error(err))
		return none, nil
	}

	bestName := ""
	bestSim := math.Inf(-1)
	for _, tool := range snap.Tools() {
		toolVec, err := m.embedder.Embed(ctx, tool.Description)
		if err != nil {
			m.logger.Warn("tool embedding failed, declining semantic match",
				zap.String("tool", tool.Name), zap.Error(err))
			return none, nil
		}
		sim := cosineSimilarity(queryVec, toolVec)
		if sim > bestSim {
			bestSim = sim
			bestName = tool.Name
		}
	}

	confidence := clamp01(bestSim)
	if bestName == "" || confidence < m.Threshold() {
		return model.MatchResult{Confidence: confidence, Method: model.MethodNone}, nil
	}
	return model.MatchResult{
		ToolName:   bestName,
		Confidence: confidence,
		Method:     model.MethodSemantic,
	}, nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
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

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
