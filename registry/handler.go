package registry

import (
	"context"

	"github.com/jonwraymond/toolrouting/model"
)

// ToolHandler executes a local tool with the given arguments.
// It receives a context for cancellation and a map of arguments extracted
// downstream of routing. It returns the result as any (typically a map or
// struct) and an error if execution fails.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// LocalToolOption configures local tool registration.
type LocalToolOption func(*localToolConfig)

type localToolConfig struct {
	keywords   []string
	parameters map[string]model.ParameterSpec
}

// WithKeywords sets the rule keywords for a local tool.
func WithKeywords(keywords ...string) LocalToolOption {
	return func(c *localToolConfig) {
		c.keywords = keywords
	}
}

// WithParameters sets the parameter schema for a local tool.
func WithParameters(params map[string]model.ParameterSpec) LocalToolOption {
	return func(c *localToolConfig) {
		c.parameters = params
	}
}

// RegisterLocalFunc is a convenience for inline tool definition.
func (r *Registry) RegisterLocalFunc(
	name, description string,
	handler ToolHandler,
	opts ...LocalToolOption,
) error {
	cfg := localToolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	tool := model.ToolDefinition{
		Name:         name,
		Description:  description,
		Parameters:   cfg.parameters,
		RuleKeywords: model.NormalizeKeywords(cfg.keywords),
	}
	return r.RegisterLocal(tool, handler)
}
