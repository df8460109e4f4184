package model

import (
	"errors"
	"testing"
)

func TestToolDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tool    ToolDefinition
		wantErr bool
	}{
		{
			name: "valid",
			tool: ToolDefinition{
				Name:         "search_files",
				Description:  "Search the filesystem",
				RuleKeywords: []string{"search", "find"},
				Parameters: map[string]ParameterSpec{
					"pattern": {Type: "string", Required: true},
				},
			},
		},
		{
			name:    "missing name",
			tool:    ToolDefinition{Description: "something"},
			wantErr: true,
		},
		{
			name:    "missing description",
			tool:    ToolDefinition{Name: "read_file"},
			wantErr: true,
		},
		{
			name: "empty keyword",
			tool: ToolDefinition{
				Name:         "read_file",
				Description:  "Read a file",
				RuleKeywords: []string{"read", "  "},
			},
			wantErr: true,
		},
		{
			name: "untyped parameter",
			tool: ToolDefinition{
				Name:        "read_file",
				Description: "Read a file",
				Parameters:  map[string]ParameterSpec{"path": {}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tool.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTool) {
					t.Fatalf("Validate() = %v, want ErrInvalidTool", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"lowercase and trim", []string{" Search ", "FIND"}, []string{"search", "find"}},
		{"dedupe preserves order", []string{"cpu", "CPU", "memory"}, []string{"cpu", "memory"}},
		{"drops empties", []string{"", "  ", "disk"}, []string{"disk"}},
		{"all empty", []string{"", " "}, nil},
		{"cjk preserved", []string{"文件", "系统信息"}, []string{"文件", "系统信息"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeKeywords(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("NormalizeKeywords() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("NormalizeKeywords() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestToolDefinition_Clone_Independent(t *testing.T) {
	orig := ToolDefinition{
		Name:         "get_system_info",
		Description:  "Report system information",
		RuleKeywords: []string{"cpu", "memory"},
		Parameters:   map[string]ParameterSpec{"section": {Type: "string"}},
	}

	clone := orig.Clone()
	clone.RuleKeywords[0] = "mutated"
	clone.Parameters["section"] = ParameterSpec{Type: "number"}

	if orig.RuleKeywords[0] != "cpu" {
		t.Errorf("clone mutation leaked into original keywords")
	}
	if orig.Parameters["section"].Type != "string" {
		t.Errorf("clone mutation leaked into original parameters")
	}
}

func TestMatchResult_Matched(t *testing.T) {
	if (MatchResult{Method: MethodNone}).Matched() {
		t.Error("empty result should not report matched")
	}
	if !(MatchResult{ToolName: "search_files", Method: MethodRule}).Matched() {
		t.Error("result with tool name should report matched")
	}
}

func TestDocument_Clone_Independent(t *testing.T) {
	orig := Document{
		ID:        "doc-1",
		Text:      "passage",
		Metadata:  map[string]string{"source": "manual"},
		Embedding: []float32{0.1, 0.2},
	}

	clone := orig.Clone()
	clone.Metadata["source"] = "mutated"
	clone.Embedding[0] = 9

	if orig.Metadata["source"] != "manual" {
		t.Error("clone mutation leaked into original metadata")
	}
	if orig.Embedding[0] != 0.1 {
		t.Error("clone mutation leaked into original embedding")
	}
}
