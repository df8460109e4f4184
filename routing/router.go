package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolrouting/model"
	"github.com/jonwraymond/toolrouting/provider"
	"github.com/jonwraymond/toolrouting/registry"
)

// State is the terminal state of one routing decision.
type State string

const (
	// StateRouted means a tool was selected; execution is delegated to
	// the registry's execution layer.
	StateRouted State = "routed"

	// StateDeclined means no tool cleared its matcher; the request falls
	// through to conversational handling.
	StateDeclined State = "declined"
)

// Decision is the outcome of routing one request.
type Decision struct {
	// State is Routed or Declined.
	State State

	// Tool is the selected definition. Zero value when Declined.
	Tool model.ToolDefinition

	// Result carries the match confidence and the method that produced
	// the decision, for auditing. For Declined decisions the confidence
	// is the best similarity observed below threshold.
	Result model.MatchResult
}

// Routed reports whether a tool was selected.
func (d Decision) Routed() bool {
	return d.State == StateRouted
}

// Options configures a Router.
type Options struct {
	// Embedder enables semantic fallback matching. Nil leaves rule
	// matching as the only strategy. Wrap in provider.CachingEmbedder to
	// cache tool description embeddings for the process lifetime.
	Embedder provider.Embedder

	// SimilarityThreshold gates semantic matches.
	// <= 0 uses DefaultSimilarityThreshold.
	SimilarityThreshold float64

	// MinRuleConfidence is the floor for rule matches. Zero means any
	// nonzero keyword overlap qualifies.
	MinRuleConfidence float64

	// Matchers overrides the default rule -> semantic chain entirely.
	Matchers []Matcher

	// Logger receives decision events. Nil uses a no-op logger.
	Logger *zap.Logger
}

// Router orchestrates the matcher chain over registry snapshots.
type Router struct {
	registry *registry.Registry
	matchers []Matcher
	logger   *zap.Logger
}

// New creates a Router over the given registry.
func New(reg *registry.Registry, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	matchers := opts.Matchers
	if matchers == nil {
		matchers = []Matcher{NewRuleMatcher(opts.MinRuleConfidence)}
		if opts.Embedder != nil {
			matchers = append(matchers, NewSemanticMatcher(opts.Embedder, opts.SimilarityThreshold, logger))
		}
	}

	return &Router{
		registry: reg,
		matchers: matchers,
		logger:   logger,
	}
}

// Route runs the matcher chain against one registry snapshot and
// returns the terminal decision. The first strategy to produce a match
// wins; if none does, the decision is Declined with the best observed
// confidence.
func (r *Router) Route(ctx context.Context, request string) (Decision, error) {
	snap := r.registry.Snapshot()

	declined := model.MatchResult{Method: model.MethodNone}
	for _, matcher := range r.matchers {
		result, err := matcher.Match(ctx, request, snap)
		if err != nil {
			return Decision{}, err
		}
		if result.Matched() {
			tool, ok := snap.Get(result.ToolName)
			if !ok {
				// Matcher returned a tool outside its snapshot; treat as
				// unmatched and keep going.
				continue
			}
			r.logger.Debug("request routed",
				zap.String("tool", result.ToolName),
				zap.String("method", string(result.Method)),
				zap.Float64("confidence", result.Confidence))
			return Decision{State: StateRouted, Tool: tool, Result: result}, nil
		}
		if result.Confidence > declined.Confidence {
			declined.Confidence = result.Confidence
		}
	}

	r.logger.Debug("request declined", zap.Float64("bestConfidence", declined.Confidence))
	return Decision{State: StateDeclined, Result: declined}, nil
}

// ShouldUseTool reports whether Route would reach the Routed state for
// this request.
func (r *Router) ShouldUseTool(ctx context.Context, request string) (bool, error) {
	decision, err := r.Route(ctx, request)
	if err != nil {
		return false, err
	}
	return decision.Routed(), nil
}
