package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/toolrouting/model"
)

func testTool(name string, keywords ...string) model.ToolDefinition {
	return model.ToolDefinition{
		Name:         name,
		Description:  "description of " + name,
		RuleKeywords: keywords,
	}
}

func TestRegistry_AddTool(t *testing.T) {
	reg := New(Config{})

	if err := reg.AddTool(testTool("search_files", "search", "find")); err != nil {
		t.Fatalf("AddTool failed: %v", err)
	}

	snap := reg.Snapshot()
	if snap.Len() != 1 {
		t.Fatalf("snapshot len = %d, want 1", snap.Len())
	}
	tool, ok := snap.Get("search_files")
	if !ok {
		t.Fatal("tool not found in snapshot")
	}
	if len(tool.RuleKeywords) != 2 {
		t.Fatalf("keywords = %v, want 2 normalized keywords", tool.RuleKeywords)
	}
}

func TestRegistry_AddTool_RejectsDuplicate(t *testing.T) {
	reg := New(Config{})

	if err := reg.AddTool(testTool("search_files")); err != nil {
		t.Fatalf("first AddTool failed: %v", err)
	}
	err := reg.AddTool(testTool("search_files"))
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistry_AddTool_RejectsInvalid(t *testing.T) {
	reg := New(Config{})

	err := reg.AddTool(model.ToolDefinition{Name: "no_description"})
	if !errors.Is(err, model.ErrInvalidTool) {
		t.Fatalf("expected ErrInvalidTool, got %v", err)
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	reg := New(Config{})
	if err := reg.AddTool(testTool("search_files")); err != nil {
		t.Fatalf("AddTool failed: %v", err)
	}

	// An in-flight request holds this snapshot.
	snap := reg.Snapshot()

	if err := reg.RemoveTool("search_files"); err != nil {
		t.Fatalf("RemoveTool failed: %v", err)
	}
	if err := reg.AddTool(testTool("get_system_info")); err != nil {
		t.Fatalf("AddTool failed: %v", err)
	}

	// The held snapshot still sees the original tool set.
	if _, ok := snap.Get("search_files"); !ok {
		t.Error("held snapshot lost search_files after mutation")
	}
	if _, ok := snap.Get("get_system_info"); ok {
		t.Error("held snapshot gained get_system_info after mutation")
	}

	// A fresh snapshot sees the new tool set.
	fresh := reg.Snapshot()
	if _, ok := fresh.Get("search_files"); ok {
		t.Error("fresh snapshot still has removed tool")
	}
	if _, ok := fresh.Get("get_system_info"); !ok {
		t.Error("fresh snapshot missing new tool")
	}
	if fresh.Version() <= snap.Version() {
		t.Errorf("version did not advance: %d <= %d", fresh.Version(), snap.Version())
	}
}

func TestRegistry_InsertionOrderPreserved(t *testing.T) {
	reg := New(Config{})
	names := []string{"alpha", "bravo", "charlie"}
	for _, name := range names {
		if err := reg.AddTool(testTool(name)); err != nil {
			t.Fatalf("AddTool(%s) failed: %v", name, err)
		}
	}

	got := reg.Snapshot().Names()
	for i, want := range names {
		if got[i] != want {
			t.Fatalf("Names() = %v, want %v", got, names)
		}
	}
}

func TestRegistry_ReplaceTool(t *testing.T) {
	reg := New(Config{})
	if err := reg.AddTool(testTool("alpha")); err != nil {
		t.Fatalf("AddTool failed: %v", err)
	}
	if err := reg.AddTool(testTool("bravo")); err != nil {
		t.Fatalf("AddTool failed: %v", err)
	}

	replacement := testTool("alpha", "new", "keywords")
	if err := reg.ReplaceTool(replacement); err != nil {
		t.Fatalf("ReplaceTool failed: %v", err)
	}

	snap := reg.Snapshot()
	if snap.Names()[0] != "alpha" {
		t.Error("replacement must keep insertion position")
	}
	tool, _ := snap.Get("alpha")
	if len(tool.RuleKeywords) != 2 {
		t.Errorf("keywords = %v, want replaced set", tool.RuleKeywords)
	}

	err := reg.ReplaceTool(testTool("missing"))
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistry_RemoveTool_NotFound(t *testing.T) {
	reg := New(Config{})
	err := reg.RemoveTool("missing")
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistry_ExecuteLocal(t *testing.T) {
	reg := New(Config{})

	err := reg.RegisterLocalFunc("echo", "Echo the arguments back",
		func(_ context.Context, args map[string]any) (any, error) {
			return args["message"], nil
		},
		WithKeywords("echo", "repeat"),
	)
	if err != nil {
		t.Fatalf("RegisterLocalFunc failed: %v", err)
	}

	out, err := reg.Execute(context.Background(), "echo", map[string]any{"message": "hi"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "hi" {
		t.Fatalf("Execute = %v, want hi", out)
	}
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	reg := New(Config{})
	_, err := reg.Execute(context.Background(), "missing", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistry_Execute_NoHandler(t *testing.T) {
	reg := New(Config{})
	if err := reg.AddTool(testTool("orphan")); err != nil {
		t.Fatalf("AddTool failed: %v", err)
	}

	_, err := reg.Execute(context.Background(), "orphan", nil)
	if !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("expected ErrHandlerNotFound, got %v", err)
	}
}

func TestRegistry_RegisterLocal_NilHandler(t *testing.T) {
	reg := New(Config{})
	err := reg.RegisterLocal(testTool("x"), nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRegistry_Stats(t *testing.T) {
	reg := New(Config{})
	_ = reg.RegisterLocalFunc("a", "tool a", func(context.Context, map[string]any) (any, error) { return nil, nil })
	_ = reg.AddTool(testTool("b"))

	stats := reg.Stats()
	if stats.TotalTools != 2 {
		t.Errorf("TotalTools = %d, want 2", stats.TotalTools)
	}
	if stats.LocalTools != 1 {
		t.Errorf("LocalTools = %d, want 1", stats.LocalTools)
	}
}

func TestRegistry_HealthCheck_NotStarted(t *testing.T) {
	reg := New(Config{})
	if err := reg.HealthCheck(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestRegistry_StartStop(t *testing.T) {
	reg := New(Config{})

	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := reg.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if err := reg.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if err := reg.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := reg.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}
