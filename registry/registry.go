package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolrouting/model"
)

// Config configures a Registry.
type Config struct {
	// Logger receives registration and backend lifecycle events.
	// Nil uses a no-op logger.
	Logger *zap.Logger
}

// Registry owns the tool set and the execution backends. Reads go
// through immutable snapshots; mutation installs a new snapshot
// atomically.
type Registry struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	handlers map[string]ToolHandler
	backends map[string]*mcpBackend
	execs    map[string]string // tool name -> backend name
	logger   *zap.Logger

	started bool
}

// New creates an empty Registry.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		snapshot: emptySnapshot(),
		handlers: make(map[string]ToolHandler),
		backends: make(map[string]*mcpBackend),
		execs:    make(map[string]string),
		logger:   logger,
	}
}

// Snapshot returns the current immutable view of the tool set.
// Matching reads exactly one snapshot per request.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// AddTool registers a tool definition. The keyword set is normalized.
// Duplicate names and malformed definitions are rejected.
func (r *Registry) AddTool(tool model.ToolDefinition) error {
	if err := tool.Validate(); err != nil {
		return err
	}
	tool.RuleKeywords = model.NormalizeKeywords(tool.RuleKeywords)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snapshot.Get(tool.Name); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}
	r.snapshot = r.snapshot.withTool(tool)
	r.logger.Debug("tool registered",
		zap.String("tool", tool.Name),
		zap.Int("keywords", len(tool.RuleKeywords)),
		zap.Uint64("version", r.snapshot.Version()))
	return nil
}

// ReplaceTool swaps the definition of an existing tool, keeping its
// insertion position. Used to change keyword sets or descriptions.
func (r *Registry) ReplaceTool(tool model.ToolDefinition) error {
	if err := tool.Validate(); err != nil {
		return err
	}
	tool.RuleKeywords = model.NormalizeKeywords(tool.RuleKeywords)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snapshot.Get(tool.Name); !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, tool.Name)
	}
	r.snapshot = r.snapshot.withReplacedTool(tool)
	r.logger.Debug("tool replaced", zap.String("tool", tool.Name), zap.Uint64("version", r.snapshot.Version()))
	return nil
}

// RemoveTool unregisters a tool. In-flight matches against older
// snapshots still complete and may select the removed tool; execution
// of a removed tool fails with ErrToolNotFound.
func (r *Registry) RemoveTool(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snapshot.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	r.snapshot = r.snapshot.withoutTool(name)
	delete(r.handlers, name)
	delete(r.execs, name)
	r.logger.Debug("tool removed", zap.String("tool", name), zap.Uint64("version", r.snapshot.Version()))
	return nil
}

// RegisterLocal registers a tool with an in-process execution handler.
func (r *Registry) RegisterLocal(tool model.ToolDefinition, handler ToolHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler is required", ErrInvalidRequest)
	}
	if err := r.AddTool(tool); err != nil {
		return err
	}

	r.mu.Lock()
	r.handlers[tool.Name] = handler
	r.mu.Unlock()
	return nil
}

// Execute runs a tool by name with the given arguments. Local tools run
// their handler; remote tools are called over their MCP backend.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	_, registered := r.snapshot.Get(name)
	handler, hasHandler := r.handlers[name]
	backendName, hasBackend := r.execs[name]
	var backend *mcpBackend
	if hasBackend {
		backend = r.backends[backendName]
	}
	r.mu.RUnlock()

	if !registered {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	switch {
	case hasHandler:
		return handler(ctx, args)
	case backend != nil:
		return backend.callTool(ctx, name, args)
	default:
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, name)
	}
}

// Start connects all registered MCP backends and registers their
// advertised tools for routing.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	backends := make(map[string]*mcpBackend, len(r.backends))
	for name, backend := range r.backends {
		backends[name] = backend
	}
	r.mu.Unlock()

	connected := make([]string, 0, len(backends))
	for name, backend := range backends {
		if err := backend.connect(ctx); err != nil {
			r.teardown(backends, connected)
			return fmt.Errorf("failed to connect backend %s: %w", name, err)
		}
		connected = append(connected, name)

		if err := r.registerBackendTools(name, backend); err != nil {
			r.teardown(backends, connected)
			return fmt.Errorf("failed to register backend %s tools: %w", name, err)
		}
		r.logger.Info("backend connected",
			zap.String("backend", name),
			zap.Int("tools", len(backend.toolsSnapshot())))
	}
	return nil
}

// Stop disconnects all MCP backends.
func (r *Registry) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	backends := make(map[string]*mcpBackend, len(r.backends))
	for name, backend := range r.backends {
		backends[name] = backend
	}
	r.mu.Unlock()

	for name, backend := range backends {
		if err := backend.disconnect(); err != nil {
			return fmt.Errorf("failed to disconnect backend %s: %w", name, err)
		}
	}
	return nil
}

// HealthCheck returns nil if the registry is started and all backends
// are connected.
func (r *Registry) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.started {
		return ErrNotStarted
	}
	for name, backend := range r.backends {
		if !backend.isConnected() {
			return fmt.Errorf("backend %s not connected", name)
		}
	}
	return nil
}

// Stats describes the registry contents.
type Stats struct {
	TotalTools int
	LocalTools int
	MCPTools   int
	Backends   int
	Version    uint64
}

// Stats returns registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		TotalTools: r.snapshot.Len(),
		LocalTools: len(r.handlers),
		MCPTools:   len(r.execs),
		Backends:   len(r.backends),
		Version:    r.snapshot.Version(),
	}
}

func (r *Registry) registerBackendTools(backendName string, backend *mcpBackend) error {
	for _, tool := range backend.toolsSnapshot() {
		if err := r.AddTool(tool); err != nil {
			return err
		}
		r.mu.Lock()
		r.execs[tool.Name] = backendName
		r.mu.Unlock()
	}
	return nil
}

func (r *Registry) teardown(backends map[string]*mcpBackend, connected []string) {
	for _, name := range connected {
		_ = backends[name].disconnect()
	}
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()
}
