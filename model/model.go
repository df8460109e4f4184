package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Error values for consistent error handling by callers.
var (
	ErrInvalidTool = errors.New("invalid tool definition")
)

// Method indicates how a request was matched to a tool.
type Method string

const (
	// MethodRule indicates the match came from keyword rule matching.
	MethodRule Method = "rule"

	// MethodSemantic indicates the match came from embedding similarity.
	MethodSemantic Method = "semantic"

	// MethodNone indicates no tool matched.
	MethodNone Method = "none"
)

// ParameterSpec describes a single parameter of a tool.
type ParameterSpec struct {
	// Type is the JSON type of the parameter ("string", "number", ...).
	Type string `json:"type"`

	// Required reports whether the parameter must be supplied.
	Required bool `json:"required"`

	// Description documents the parameter for schema consumers.
	Description string `json:"description,omitempty"`
}

// ToolDefinition describes a system capability that requests can be
// routed to. Definitions are immutable once registered; replace the
// whole definition to change keywords or parameters.
type ToolDefinition struct {
	// Name is the unique key for the tool within a registry snapshot.
	Name string `json:"name"`

	// Description is the canonical natural-language description. Its
	// embedding is what semantic matching compares requests against.
	Description string `json:"description"`

	// Parameters maps parameter name to its specification.
	Parameters map[string]ParameterSpec `json:"parameters,omitempty"`

	// RuleKeywords are the normalized keywords used by rule matching.
	RuleKeywords []string `json:"ruleKeywords,omitempty"`
}

// Validate reports whether the definition is well formed.
// Registration must reject definitions that fail validation.
func (t ToolDefinition) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTool)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("%w: description is required for %q", ErrInvalidTool, t.Name)
	}
	for _, kw := range t.RuleKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: empty rule keyword for %q", ErrInvalidTool, t.Name)
		}
	}
	for name, spec := range t.Parameters {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty parameter name for %q", ErrInvalidTool, t.Name)
		}
		if strings.TrimSpace(spec.Type) == "" {
			return fmt.Errorf("%w: parameter %q of %q has no type", ErrInvalidTool, name, t.Name)
		}
	}
	return nil
}

// Clone returns a deep copy of the definition.
func (t ToolDefinition) Clone() ToolDefinition {
	out := t
	if t.RuleKeywords != nil {
		out.RuleKeywords = slices.Clone(t.RuleKeywords)
	}
	if t.Parameters != nil {
		out.Parameters = make(map[string]ParameterSpec, len(t.Parameters))
		for name, spec := range t.Parameters {
			out.Parameters[name] = spec
		}
	}
	return out
}

// NormalizeKeywords lowercases, trims, deduplicates, and drops empty
// keywords, preserving first-seen order.
func NormalizeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MatchResult is the outcome of one routing attempt. It is produced per
// request and never persisted.
type MatchResult struct {
	// ToolName is the matched tool, or empty when no tool matched.
	ToolName string `json:"toolName,omitempty"`

	// Confidence is the match confidence in [0,1]. For MethodNone it
	// carries the best similarity observed, useful for auditing why the
	// request was declined.
	Confidence float64 `json:"confidence"`

	// Method indicates how the match was produced.
	Method Method `json:"method"`
}

// Matched reports whether a tool was selected.
func (m MatchResult) Matched() bool {
	return m.ToolName != ""
}

// Document is a retrievable text passage.
type Document struct {
	// ID is the stable document identifier.
	ID string `json:"id"`

	// Text is the passage content.
	Text string `json:"text"`

	// Metadata is opaque to the retrieval core.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Embedding is the cached vector for the text, computed once at
	// ingestion time.
	Embedding []float32 `json:"-"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	if d.Embedding != nil {
		out.Embedding = slices.Clone(d.Embedding)
	}
	return out
}

// Candidate is the ephemeral per-retrieval record used during fusion and
// reranking. SparseRank and DenseRank are 1-based; zero means the
// document was absent from that leg.
type Candidate struct {
	DocumentID  string
	SparseRank  int
	DenseRank   int
	FusedScore  float64
	RerankScore float64
	Reranked    bool
}
