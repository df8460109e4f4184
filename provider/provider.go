package provider

import (
	"context"
	"errors"
)

// Error values for consistent error handling by callers.
var (
	// ErrUnavailable signals the backing capability cannot be reached.
	// Callers recover via their documented degradation path.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrInvalidConfig signals a provider was constructed with an
	// unusable configuration.
	ErrInvalidConfig = errors.New("invalid provider config")
)

// Embedder generates vector embeddings from text. Embeddings have fixed
// dimensionality and are deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerateOptions controls a single generation call.
type GenerateOptions struct {
	// MaxTokens caps the completion length. Zero uses the backend default.
	MaxTokens int

	// Temperature controls sampling randomness. Zero uses the backend
	// default.
	Temperature float64
}

// Generator produces text from a prompt. Used for query rewriting and
// hypothetical-document generation.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Reranker scores a candidate passage against a query. Higher is more
// relevant. Called once per candidate during the rerank pass.
type Reranker interface {
	Score(ctx context.Context, query, candidate string) (float64, error)
}
