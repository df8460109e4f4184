package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolrouting/index"
	"github.com/jonwraymond/toolrouting/model"
	"github.com/jonwraymond/toolrouting/registry"
	"github.com/jonwraymond/toolrouting/retrieval"
	"github.com/jonwraymond/toolrouting/routing"
)

const protocolVersion = "2024-11-05"

// Options configures a Server.
type Options struct {
	// Registry backs tools/list and tools/call. Required.
	Registry *registry.Registry

	// Router backs the route method. Required.
	Router *routing.Router

	// Retriever backs the retrieve method. Nil disables it.
	Retriever *retrieval.Retriever

	// Store backs the documents/* methods. Nil disables them.
	Store *index.Store

	// Name and Version identify the server in initialize responses.
	Name    string
	Version string

	// Logger receives request events. Nil uses a no-op logger.
	Logger *zap.Logger
}

// Server dispatches JSON-RPC requests to the engine. Safe for
// concurrent use.
type Server struct {
	registry  *registry.Registry
	router    *routing.Router
	retriever *retrieval.Retriever
	store     *index.Store
	name      string
	version   string
	logger    *zap.Logger
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("router is required")
	}
	s := &Server{
		registry:  opts.Registry,
		router:    opts.Router,
		retriever: opts.Retriever,
		store:     opts.Store,
		name:      opts.Name,
		version:   opts.Version,
		logger:    opts.Logger,
	}
	if s.name == "" {
		s.name = "toolrouting"
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// HandleRequest processes one JSON-RPC request and returns the
// response.
func (s *Server) HandleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req.ID)
	case "tools/list":
		return s.handleToolsList(req.ID)
	case "tools/call":
		return s.handleToolsCall(ctx, req.ID, req.Params)
	case "route":
		return s.handleRoute(ctx, req.ID, req.Params)
	case "retrieve":
		return s.handleRetrieve(ctx, req.ID, req.Params)
	case "documents/add":
		return s.handleDocumentsAdd(ctx, req.ID, req.Params)
	case "documents/remove":
		return s.handleDocumentsRemove(req.ID, req.Params)
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound,
			fmt.Sprintf("method %s not found", req.Method))
	}
}

func (s *Server) handleInitialize(id any) Response {
	return resultResponse(id, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	})
}

func (s *Server) handleToolsList(id any) Response {
	snap := s.registry.Snapshot()

	tools := make([]map[string]any, 0, snap.Len())
	for _, tool := range snap.Tools() {
		tools = append(tools, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": inputSchema(tool),
		})
	}
	return resultResponse(id, map[string]any{"tools": tools})
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, id any, params json.RawMessage) Response {
	var call toolsCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}

	result, err := s.registry.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		code := ErrCodeToolExecFailed
		if errors.Is(err, registry.ErrToolNotFound) {
			code = ErrCodeToolNotFound
		}
		return errorResponse(id, code, err.Error())
	}
	return resultResponse(id, result)
}

type routeParams struct {
	Request string `json:"request"`
}

func (s *Server) handleRoute(ctx context.Context, id any, params json.RawMessage) Response {
	var p routeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}
	if p.Request == "" {
		return errorResponse(id, ErrCodeInvalidParams, "request is required")
	}

	decision, err := s.router.Route(ctx, p.Request)
	if err != nil {
		return errorResponse(id, ErrCodeInternal, err.Error())
	}

	result := map[string]any{
		"state":      string(decision.State),
		"method":     string(decision.Result.Method),
		"confidence": decision.Result.Confidence,
	}
	if decision.Routed() {
		result["toolName"] = decision.Tool.Name
	}
	return resultResponse(id, result)
}

type retrieveParams struct {
	Query string `json:"query"`
}

func (s *Server) handleRetrieve(ctx context.Context, id any, params json.RawMessage) Response {
	if s.retriever == nil {
		return errorResponse(id, ErrCodeMethodNotFound, "retrieval not configured")
	}

	var p retrieveParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}
	if p.Query == "" {
		return errorResponse(id, ErrCodeInvalidParams, "query is required")
	}

	results, err := s.retriever.Retrieve(ctx, p.Query)
	if err != nil {
		return errorResponse(id, ErrCodeInternal, err.Error())
	}

	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		entry := map[string]any{
			"documentId": res.Document.ID,
			"text":       res.Document.Text,
			"fusedScore": res.Candidate.FusedScore,
		}
		if len(res.Document.Metadata) > 0 {
			entry["metadata"] = res.Document.Metadata
		}
		if res.Candidate.Reranked {
			entry["rerankScore"] = res.Candidate.RerankScore
		}
		out = append(out, entry)
	}
	return resultResponse(id, map[string]any{"results": out})
}

type documentsAddParams struct {
	Documents []struct {
		ID       string            `json:"id"`
		Text     string            `json:"text"`
		Metadata map[string]string `json:"metadata"`
	} `json:"documents"`
}

func (s *Server) handleDocumentsAdd(ctx context.Context, id any, params json.RawMessage) Response {
	if s.store == nil {
		return errorResponse(id, ErrCodeMethodNotFound, "document store not configured")
	}

	var p documentsAddParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}
	if len(p.Documents) == 0 {
		return errorResponse(id, ErrCodeInvalidParams, "documents are required")
	}

	docs := make([]model.Document, 0, len(p.Documents))
	for _, d := range p.Documents {
		docs = append(docs, model.Document{ID: d.ID, Text: d.Text, Metadata: d.Metadata})
	}

	ids, err := s.store.Add(ctx, docs...)
	if err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}
	return resultResponse(id, map[string]any{"ids": ids})
}

type documentsRemoveParams struct {
	ID string `json:"id"`
}

func (s *Server) handleDocumentsRemove(id any, params json.RawMessage) Response {
	if s.store == nil {
		return errorResponse(id, ErrCodeMethodNotFound, "document store not configured")
	}

	var p documentsRemoveParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}
	if err := s.store.Remove(p.ID); err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}
	return resultResponse(id, map[string]any{"removed": p.ID})
}

// inputSchema renders a tool's parameter specs as a JSON Schema object.
func inputSchema(tool model.ToolDefinition) map[string]any {
	properties := make(map[string]any, len(tool.Parameters))
	required := make([]string, 0, len(tool.Parameters))

	for name, spec := range tool.Parameters {
		prop := map[string]any{"type": spec.Type}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		properties[name] = prop
		if spec.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
