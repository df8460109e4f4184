// Package server exposes the routing and retrieval engine over MCP-style
// JSON-RPC. Three transports are supported: stdio (newline-delimited
// JSON), streamable HTTP (POST request/response), and Server-Sent
// Events.
//
// Beyond the standard MCP methods (initialize, tools/list, tools/call)
// the server adds engine-specific methods:
//
//   - route: run the routing chain for a request, returning the
//     decision with its method tag and confidence
//   - retrieve: run hybrid retrieval for a query
//   - documents/add, documents/remove: manage the retrieval corpus
package server
