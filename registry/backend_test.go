package registry

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// startBackendServer connects an in-memory MCP server advertising the
// given tools and returns the client-side transport.
func startBackendServer(t *testing.T, tools ...*mcp.Tool) mcp.Transport {
	t.Helper()

	type backendArgs struct {
		Message string `json:"message"`
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "backend-server"}, nil)
	for _, tool := range tools {
		mcp.AddTool(server, tool, func(_ context.Context, _ *mcp.CallToolRequest, args backendArgs) (*mcp.CallToolResult, any, error) {
			return nil, map[string]any{"echo": args.Message}, nil
		})
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	session, err := server.Connect(context.Background(), serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return clientTransport
}

func TestRegisterMCPAndExecute(t *testing.T) {
	transport := startBackendServer(t, &mcp.Tool{
		Name:        "echo",
		Description: "Echo the message back",
	})

	ctx := context.Background()
	reg := New(Config{})
	err := reg.RegisterMCP(BackendConfig{
		Name:      "remote",
		Transport: transport,
		Keywords:  map[string][]string{"echo": {"Echo", "repeat"}},
	})
	if err != nil {
		t.Fatalf("RegisterMCP failed: %v", err)
	}

	if err := reg.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		if err := reg.Stop(); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
	}()

	// The advertised tool joins the snapshot with its mapped keywords
	// normalized.
	tool, ok := reg.Snapshot().Get("echo")
	if !ok {
		t.Fatal("expected echo in the snapshot after Start")
	}
	if !slices.Equal(tool.RuleKeywords, []string{"echo", "repeat"}) {
		t.Fatalf("RuleKeywords = %v, want [echo repeat]", tool.RuleKeywords)
	}

	result, err := reg.Execute(ctx, "echo", map[string]any{"message": "hi"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	resultMap, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", result)
	}
	if resultMap["echo"] != "hi" {
		t.Fatalf("expected echo='hi', got %v", resultMap["echo"])
	}

	stats := reg.Stats()
	if stats.MCPTools != 1 || stats.Backends != 1 {
		t.Fatalf("Stats = %+v, want 1 MCP tool on 1 backend", stats)
	}
	if err := reg.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestRegisterMCP_AfterStartConnectsImmediately(t *testing.T) {
	transport := startBackendServer(t, &mcp.Tool{
		Name:        "lookup",
		Description: "Look something up",
	})

	ctx := context.Background()
	reg := New(Config{})
	if err := reg.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = reg.Stop() }()

	if err := reg.RegisterMCP(BackendConfig{Name: "late", Transport: transport}); err != nil {
		t.Fatalf("RegisterMCP failed: %v", err)
	}
	if _, ok := reg.Snapshot().Get("lookup"); !ok {
		t.Fatal("backend registered after Start must connect and expose its tools")
	}
}

func TestUnregisterMCP(t *testing.T) {
	transport := startBackendServer(t, &mcp.Tool{
		Name:        "tool1",
		Description: "Tool 1",
	})

	ctx := context.Background()
	reg := New(Config{})
	if err := reg.RegisterMCP(BackendConfig{Name: "backend1", Transport: transport}); err != nil {
		t.Fatalf("RegisterMCP failed: %v", err)
	}
	if err := reg.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = reg.Stop() }()

	if _, ok := reg.Snapshot().Get("tool1"); !ok {
		t.Fatal("expected tool1 in the snapshot")
	}

	if err := reg.UnregisterMCP("backend1"); err != nil {
		t.Fatalf("UnregisterMCP failed: %v", err)
	}
	if _, ok := reg.Snapshot().Get("tool1"); ok {
		t.Fatal("tool1 must leave the snapshot with its backend")
	}
	if _, err := reg.Execute(ctx, "tool1", nil); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Execute after unregister = %v, want ErrToolNotFound", err)
	}

	if err := reg.UnregisterMCP("backend1"); !errors.Is(err, ErrBackendNotFound) {
		t.Fatalf("second UnregisterMCP = %v, want ErrBackendNotFound", err)
	}
}

func TestRegisterMCP_EmptyName(t *testing.T) {
	reg := New(Config{})
	err := reg.RegisterMCP(BackendConfig{URL: "http://example.com/mcp"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("RegisterMCP = %v, want ErrInvalidRequest", err)
	}
}

func TestRegisterMCP_DuplicateName(t *testing.T) {
	transport := startBackendServer(t, &mcp.Tool{Name: "a", Description: "A"})

	reg := New(Config{})
	if err := reg.RegisterMCP(BackendConfig{Name: "backend", Transport: transport}); err != nil {
		t.Fatalf("RegisterMCP failed: %v", err)
	}
	err := reg.RegisterMCP(BackendConfig{Name: "backend", URL: "http://example.com/mcp"})
	if err == nil {
		t.Fatal("expected error for duplicate backend name")
	}
}

func TestStart_BadBackendURLFails(t *testing.T) {
	reg := New(Config{})
	if err := reg.RegisterMCP(BackendConfig{Name: "bad", URL: "ftp://example.com"}); err != nil {
		t.Fatalf("RegisterMCP failed: %v", err)
	}

	if err := reg.Start(context.Background()); err == nil {
		_ = reg.Stop()
		t.Fatal("Start must fail for an unsupported backend URL scheme")
	}

	// A failed Start leaves the registry stopped so it can be retried.
	if err := reg.HealthCheck(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("HealthCheck = %v, want ErrNotStarted after failed Start", err)
	}
}
