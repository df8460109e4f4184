package routing

import (
	"context"
	"strings"

	"github.com/jonwraymond/toolrouting/model"
	"github.com/jonwraymond/toolrouting/registry"
)

// Matcher scores a request against a registry snapshot and returns a
// match result. An unmatched result (empty ToolName) tells the router to
// escalate to the next strategy.
type Matcher interface {
	Match(ctx context.Context, request string, snap *registry.Snapshot) (model.MatchResult, error)
}

// RuleMatcher classifies requests by keyword overlap. It is a pure
// function of its inputs: no side effects, no external calls.
type RuleMatcher struct {
	// minConfidence is the floor a winning score must reach. Zero means
	// any nonzero overlap qualifies.
	minConfidence float64
}

// NewRuleMatcher creates a RuleMatcher with the given confidence floor.
func NewRuleMatcher(minConfidence float64) *RuleMatcher {
	return &RuleMatcher{minConfidence: minConfidence}
}

// Match scores every tool as matched-keywords over total-keywords,
// scaled and capped at 1.0. The highest nonzero score wins; ties break
// by registration order. A winning score below the floor yields an
// empty result so the router escalates to semantic matching.
func (m *RuleMatcher) Match(_ context.Context, request string, snap *registry.Snapshot) (model.MatchResult, error) {
	lower := strings.ToLower(request)

	best := model.MatchResult{Method: model.MethodNone}
	for _, tool := range snap.Tools() {
		score := ruleScore(lower, tool.RuleKeywords)
		if score > best.Confidence {
			best = model.MatchResult{
				ToolName:   tool.Name,
				Confidence: score,
				Method:     model.MethodRule,
			}
		}
	}

	if !best.Matched() || best.Confidence < m.minConfidence {
		return model.MatchResult{Method: model.MethodNone}, nil
	}
	return best, nil
}

// ruleScore is matches/total scaled by 2 and capped at 1.0, so a request
// hitting half of a tool's keywords already scores full confidence.
func ruleScore(lowerRequest string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	matches := 0
	for _, kw := range keywords {
		if strings.Contains(lowerRequest, kw) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}

	score := float64(matches) / float64(len(keywords)) * 2
	if score > 1 {
		score = 1
	}
	return score
}
