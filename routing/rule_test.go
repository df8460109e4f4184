package routing

import (
	"context"
	"testing"

	"github.com/jonwraymond/toolrouting/model"
	"github.com/jonwraymond/toolrouting/registry"
)

func newSnapshot(t *testing.T, tools ...model.ToolDefinition) *registry.Snapshot {
	t.Helper()
	reg := registry.New(registry.Config{})
	for _, tool := range tools {
		if err := reg.AddTool(tool); err != nil {
			t.Fatalf("AddTool(%s) failed: %v", tool.Name, err)
		}
	}
	return reg.Snapshot()
}

func tool(name string, keywords ...string) model.ToolDefinition {
	return model.ToolDefinition{
		Name:         name,
		Description:  "description of " + name,
		RuleKeywords: keywords,
	}
}

func TestRuleMatcher_UniqueKeywordSelectsTool(t *testing.T) {
	snap := newSnapshot(t,
		tool("search_files", "search", "find"),
		tool("get_system_info", "cpu", "memory"),
	)
	m := NewRuleMatcher(0)

	result, err := m.Match(context.Background(), "please search for the config", snap)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.ToolName != "search_files" {
		t.Fatalf("ToolName = %q, want search_files", result.ToolName)
	}
	if result.Method != model.MethodRule {
		t.Fatalf("Method = %q, want rule", result.Method)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Fatalf("Confidence = %v, want in (0,1]", result.Confidence)
	}
}

func TestRuleMatcher_CJKKeywords(t *testing.T) {
	snap := newSnapshot(t,
		tool("search_files", "search", "find", "文件"),
		tool("get_system_info", "cpu", "内存", "系统信息"),
	)
	m := NewRuleMatcher(0)

	result, err := m.Match(context.Background(), "帮我搜索一下配置文件", snap)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.ToolName != "search_files" {
		t.Fatalf("ToolName = %q, want search_files", result.ToolName)
	}
	if result.Method != model.MethodRule {
		t.Fatalf("Method = %q, want rule", result.Method)
	}
	if result.Confidence <= 0 {
		t.Fatalf("Confidence = %v, want > 0", result.Confidence)
	}
}

func TestRuleMatcher_NoOverlapReturnsEmpty(t *testing.T) {
	snap := newSnapshot(t, tool("search_files", "search", "find"))
	m := NewRuleMatcher(0)

	result, err := m.Match(context.Background(), "今天天气怎么样", snap)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Matched() {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if result.Method != model.MethodNone {
		t.Fatalf("Method = %q, want none", result.Method)
	}
}

func TestRuleMatcher_TieBrokenByRegistrationOrder(t *testing.T) {
	// Both tools share the single keyword, so both score identically.
	snap := newSnapshot(t,
		tool("first_tool", "deploy"),
		tool("second_tool", "deploy"),
	)
	m := NewRuleMatcher(0)

	result, err := m.Match(context.Background(), "deploy the service", snap)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.ToolName != "first_tool" {
		t.Fatalf("ToolName = %q, want first_tool (first registered wins)", result.ToolName)
	}
}

func TestRuleMatcher_ConfidenceScaledAndCapped(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    float64
	}{
		// 1 of 4 keywords: 1/4*2 = 0.5
		{"quarter overlap", "read it", 0.5},
		// 2 of 4: 2/4*2 = 1.0
		{"half overlap", "read the file", 1.0},
		// 4 of 4: capped at 1.0
		{"full overlap", "read cat view file", 1.0},
	}

	snap := newSnapshot(t, tool("read_file", "read", "cat", "view", "file"))
	m := NewRuleMatcher(0)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Match(context.Background(), tt.request, snap)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if result.Confidence != tt.want {
				t.Fatalf("Confidence = %v, want %v", result.Confidence, tt.want)
			}
		})
	}
}

func TestRuleMatcher_FloorFiltersWeakMatches(t *testing.T) {
	snap := newSnapshot(t, tool("read_file", "read", "cat", "view", "file"))
	m := NewRuleMatcher(0.6)

	// 1 of 4 keywords scores 0.5, below the 0.6 floor.
	result, err := m.Match(context.Background(), "read something", snap)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Matched() {
		t.Fatalf("expected empty result below floor, got %+v", result)
	}
}

func TestRuleMatcher_EmptySnapshot(t *testing.T) {
	snap := newSnapshot(t)
	m := NewRuleMatcher(0)

	result, err := m.Match(context.Background(), "anything", snap)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Matched() {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRuleMatcher_CaseInsensitive(t *testing.T) {
	snap := newSnapshot(t, tool("search_files", "search"))
	m := NewRuleMatcher(0)

	result, err := m.Match(context.Background(), "SEARCH my files", snap)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.ToolName != "search_files" {
		t.Fatalf("ToolName = %q, want search_files", result.ToolName)
	}
}
