// Package routing decides whether a free-text request should be handled
// by a system-capability tool, and if so which one.
//
// # Strategy Chain
//
// Routing is an ordered chain of [Matcher] strategies, short-circuiting
// on the first match:
//
//  1. [RuleMatcher]: keyword overlap scoring. Fast and precise for known
//     vocabulary. A miss is an empty result, not a decline.
//  2. [SemanticMatcher]: cosine similarity between the request embedding
//     and each tool's cached description embedding, gated by a
//     similarity threshold. Degrades to "no match" when the embedding
//     provider is unavailable.
//
// A request that clears neither strategy is Declined and falls through
// to conversational handling. Every decision carries the method that
// produced it (rule, semantic, none) so callers can audit why a tool
// was or wasn't chosen.
//
// # Usage
//
//	router := routing.New(reg, routing.Options{
//	    Embedder:            embedder, // nil disables semantic matching
//	    SimilarityThreshold: 0.65,
//	})
//
//	decision, err := router.Route(ctx, "帮我搜索一下配置文件")
//	if decision.Routed() {
//	    result, err := reg.Execute(ctx, decision.Tool.Name, args)
//	}
//
// [Router.ShouldUseTool] is a pure predicate equal to "would Route reach
// the Routed state".
//
// # Determinism
//
// Matchers read one registry snapshot per request. Rule-score ties break
// by registration order (first registered wins); semantic ties likewise.
// Identical inputs against identical snapshots always produce identical
// decisions.
package routing
