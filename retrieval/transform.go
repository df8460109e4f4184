package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolrouting/provider"
)

const (
	rewritePrompt = `Rewrite the following search query to be self-contained and specific.
Resolve pronouns and vague references. Output only the rewritten query,
with no explanation and no prefix.

Query: %s`

	hydePrompt = `Write a short passage that plausibly answers the following question,
as it might appear in relevant documentation. Output only the passage.

Question: %s`

	rewriteMaxTokens = 128
	hydeMaxTokens    = 256
)

// TransformOptions selects which transforms run.
type TransformOptions struct {
	// Rewrite reformulates the query for the sparse leg.
	Rewrite bool

	// HyDE generates a hypothetical answer passage for the dense leg.
	HyDE bool
}

// Transformed carries the query variants produced by Transform. Sparse
// feeds the lexical leg, Dense is embedded for the vector leg. When a
// transform is disabled or degrades, the corresponding variant is the
// original query.
type Transformed struct {
	Original string
	Sparse   string
	Dense    string

	// RewriteDegraded and HyDEDegraded record that the generator failed
	// for an enabled transform and the original query was passed through.
	RewriteDegraded bool
	HyDEDegraded    bool
}

// Transformer produces query variants via an external generator. It is
// stateless; a nil generator makes every transform a pass-through.
type Transformer struct {
	generator provider.Generator
	logger    *zap.Logger
}

// NewTransformer creates a Transformer backed by generator. A nil
// logger uses a no-op logger.
func NewTransformer(generator provider.Generator, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{generator: generator, logger: logger}
}

// Rewrite reformulates query into a self-contained variant. Returns an
// error when the generator is unset, fails, or produces empty output.
func (t *Transformer) Rewrite(ctx context.Context, query string) (string, error) {
	return t.generate(ctx, fmt.Sprintf(rewritePrompt, query), rewriteMaxTokens)
}

// Hypothesize generates a hypothetical answer passage for query. The
// passage exists only to be embedded; it is never indexed or surfaced.
func (t *Transformer) Hypothesize(ctx context.Context, query string) (string, error) {
	return t.generate(ctx, fmt.Sprintf(hydePrompt, query), hydeMaxTokens)
}

// Transform runs the enabled transforms and maps their outputs to legs:
// the rewritten query feeds the sparse leg, the hypothetical passage
// feeds the dense leg. When HyDE is disabled the dense leg uses the
// sparse variant. Generator failures degrade to the original query and
// set the matching degradation flag; Transform itself never fails.
func (t *Transformer) Transform(ctx context.Context, query string, opts TransformOptions) Transformed {
	out := Transformed{Original: query, Sparse: query, Dense: query}

	if opts.Rewrite {
		rewritten, err := t.Rewrite(ctx, query)
		if err != nil {
			t.logger.Warn("query rewrite degraded to original", zap.Error(err))
			out.RewriteDegraded = true
		} else {
			out.Sparse = rewritten
			out.Dense = rewritten
		}
	}

	if opts.HyDE {
		passage, err := t.Hypothesize(ctx, query)
		if err != nil {
			t.logger.Warn("hypothetical passage degraded to query", zap.Error(err))
			out.HyDEDegraded = true
		} else {
			out.Dense = passage
		}
	}

	return out
}

func (t *Transformer) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if t.generator == nil {
		return "", fmt.Errorf("no generator configured: %w", provider.ErrUnavailable)
	}

	raw, err := t.generator.Generate(ctx, prompt, provider.GenerateOptions{
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	cleaned := cleanGenerated(raw)
	if cleaned == "" {
		return "", fmt.Errorf("generator returned empty output")
	}
	return cleaned, nil
}

// cleanGenerated strips the framing models tend to wrap output in:
// labels like "Rewritten query:", surrounding quotes, and whitespace.
func cleanGenerated(s string) string {
	s = strings.TrimSpace(s)

	for _, prefix := range []string{
		"rewritten query:", "rewritten:", "query:", "passage:", "answer:",
	} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
