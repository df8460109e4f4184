// Package registry provides the tool registry and tool execution layer.
//
// # Snapshot Isolation
//
// The registry is read-mostly: matching reads a [Snapshot], an immutable
// view of the tool set taken at the start of a request. Mutation
// (AddTool, RemoveTool, ReplaceTool) atomically installs a new snapshot
// and never blocks or rewinds in-flight matching:
//
//	reg := registry.New(registry.Config{})
//	err := reg.AddTool(model.ToolDefinition{
//	    Name:         "search_files",
//	    Description:  "Search the filesystem for files",
//	    RuleKeywords: []string{"search", "find"},
//	})
//
//	snap := reg.Snapshot()
//	for _, tool := range snap.Tools() {
//	    // insertion-order iteration, stable for the life of the snapshot
//	}
//
// Registration rejects duplicate names and malformed definitions with
// [ErrDuplicateTool] and model.ErrInvalidTool; these are the only fatal
// registration outcomes.
//
// # Execution
//
// Once the router picks a tool, execution is delegated here. Local tools
// run an in-process [ToolHandler]; remote tools are called over MCP
// using the modelcontextprotocol go-sdk:
//
//	reg.RegisterLocal(tool, func(ctx context.Context, args map[string]any) (any, error) {
//	    return runSearch(ctx, args)
//	})
//
//	reg.RegisterMCP(registry.BackendConfig{
//	    Name: "sysinfo-server",
//	    URL:  "http://localhost:8900/mcp",
//	})
//
// MCP backends are connected on [Registry.Start]; their advertised tools
// are registered for routing with keywords supplied per backend (remote
// tools without keywords are reachable through semantic matching only).
package registry
