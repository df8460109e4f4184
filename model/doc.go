// Package model defines the core data types shared by the routing and
// retrieval packages.
//
// # Tool Definitions
//
// [ToolDefinition] describes a system capability that requests can be
// routed to:
//
//	tool := model.ToolDefinition{
//	    Name:        "search_files",
//	    Description: "Search the filesystem for files matching a pattern",
//	    RuleKeywords: []string{"search", "find", "locate"},
//	    Parameters: map[string]model.ParameterSpec{
//	        "pattern": {Type: "string", Required: true, Description: "Glob or substring to match"},
//	    },
//	}
//
// Definitions are immutable once registered. Use [ToolDefinition.Validate]
// before registration; [NormalizeKeywords] lowercases, trims, and
// deduplicates the keyword set.
//
// # Match Results
//
// [MatchResult] is the outcome of one routing attempt. The [Method] enum is
// a closed set:
//
//   - [MethodRule]: keyword rule matching
//   - [MethodSemantic]: embedding similarity matching
//   - [MethodNone]: no tool matched
//
// An empty ToolName with MethodNone is a valid terminal state, not an
// error. Confidence is always in [0,1].
//
// # Documents
//
// [Document] is a retrievable text passage with opaque metadata and a
// cached embedding. The embedding is computed once at ingestion and lives
// alongside the document for the lifetime of the index that owns it.
package model
