package registry

import (
	"slices"

	"github.com/jonwraymond/toolrouting/model"
)

// Snapshot is an immutable view of the tool set. Matchers read exactly
// one snapshot per request; registry mutation installs a new snapshot
// and never touches existing ones.
type Snapshot struct {
	tools   []model.ToolDefinition // insertion order
	byName  map[string]int
	version uint64
}

func emptySnapshot() *Snapshot {
	return &Snapshot{byName: make(map[string]int)}
}

// Tools returns the definitions in registration order. The returned
// slice is shared; callers must not modify it.
func (s *Snapshot) Tools() []model.ToolDefinition {
	return s.tools
}

// Get returns the definition for name.
func (s *Snapshot) Get(name string) (model.ToolDefinition, bool) {
	i, ok := s.byName[name]
	if !ok {
		return model.ToolDefinition{}, false
	}
	return s.tools[i], true
}

// Len returns the number of registered tools.
func (s *Snapshot) Len() int {
	return len(s.tools)
}

// Version is a monotonically increasing counter, bumped on every
// mutation. Useful for caches keyed to a tool-set generation.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Names returns tool names in registration order.
func (s *Snapshot) Names() []string {
	names := make([]string, len(s.tools))
	for i, t := range s.tools {
		names[i] = t.Name
	}
	return names
}

func (s *Snapshot) withTool(tool model.ToolDefinition) *Snapshot {
	next := s.clone()
	next.byName[tool.Name] = len(next.tools)
	next.tools = append(next.tools, tool.Clone())
	next.version = s.version + 1
	return next
}

func (s *Snapshot) withReplacedTool(tool model.ToolDefinition) *Snapshot {
	next := s.clone()
	next.tools[next.byName[tool.Name]] = tool.Clone()
	next.version = s.version + 1
	return next
}

func (s *Snapshot) withoutTool(name string) *Snapshot {
	i, ok := s.byName[name]
	if !ok {
		return s
	}
	next := &Snapshot{
		tools:   make([]model.ToolDefinition, 0, len(s.tools)-1),
		byName:  make(map[string]int, len(s.tools)-1),
		version: s.version + 1,
	}
	next.tools = append(next.tools, s.tools[:i]...)
	next.tools = append(next.tools, s.tools[i+1:]...)
	for j, t := range next.tools {
		next.byName[t.Name] = j
	}
	return next
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		tools:   slices.Clone(s.tools),
		byName:  make(map[string]int, len(s.byName)+1),
		version: s.version,
	}
	for name, i := range s.byName {
		next.byName[name] = i
	}
	return next
}
