// Package mcpserver exposes the locator pipeline's two operations as MCP
// tools, following the teacher's domkeeper/domregistry/horosembed pattern
// of one registerXTool function per tool built on kit.RegisterMCPTool.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/locatehq/locate/exec"
	"github.com/locatehq/locate/idgen"
	"github.com/locatehq/locate/kit"
)

// enrichRequestContext tags ctx with a fresh request ID and pageID so
// everything the pipeline logs or records for this call (promotion
// entries included) can be traced back to the MCP call that produced it.
func enrichRequestContext(pageID string) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		ctx = kit.WithRequestID(ctx, idgen.Default())
		return kit.WithPageID(ctx, pageID)
	}
}

// Pages resolves a caller-supplied page_id (creating and navigating a tab
// on first use) to a live page the pipeline can operate on. Satisfied by
// *browserpool.Tabs.
type Pages interface {
	Get(ctx context.Context, pageID, url string) (*rod.Page, error)
}

// Server registers locate_query and locate_act on an MCP server.
type Server struct {
	pipeline *locexec.Pipeline
	pages    Pages
}

// New builds a Server. pipeline runs the query/act pipeline; pages
// resolves page_id/url into a live page.
func New(pipeline *locexec.Pipeline, pages Pages) *Server {
	return &Server{pipeline: pipeline, pages: pages}
}

// RegisterMCP registers this server's tools on srv.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerQueryTool(srv)
	s.registerActTool(srv)
}

// --- locate_query ---

type queryRequest struct {
	PageID string `json:"page_id"`
	URL    string `json:"url,omitempty"`
	Phrase string `json:"phrase"`
	Mode   string `json:"mode,omitempty"`
}

func (s *Server) registerQueryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "locate_query",
		Description: "Resolve a natural-language description of a web element to a CSS or XPath selector, without acting on it.",
		InputSchema: kit.InputSchema(map[string]any{
			"page_id": map[string]any{"type": "string", "description": "Identifies the browser tab; reused across calls for the same page"},
			"url":     map[string]any{"type": "string", "description": "URL to navigate to if page_id has no open tab yet"},
			"phrase":  map[string]any{"type": "string", "description": "Natural-language description of the target element"},
			"mode":    map[string]any{"type": "string", "enum": []any{"semantic", "hybrid", "no-semantic"}, "description": "Overrides the server's configured ranking mode for this call"},
		}, []string{"page_id", "phrase"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*queryRequest)
		page, err := s.pages.Get(ctx, r.PageID, r.URL)
		if err != nil {
			return nil, fmt.Errorf("mcpserver: resolve page: %w", err)
		}
		return s.pipeline.Query(ctx, page, r.PageID, r.Phrase, locexec.QueryOptions{URL: r.URL, Mode: r.Mode})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r queryRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichRequestContext(r.PageID)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- locate_act ---

type actRequest struct {
	PageID       string `json:"page_id"`
	URL          string `json:"url,omitempty"`
	Intent       string `json:"intent"`
	TargetPhrase string `json:"target_phrase"`
	Value        string `json:"value,omitempty"`
	MaxRetries   int    `json:"max_retries,omitempty"`
	Mode         string `json:"mode,omitempty"`
}

func (s *Server) registerActTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "locate_act",
		Description: "Resolve a natural-language description of a web element and perform an action (click, type, select, hover, check, uncheck, focus, clear, upload) on it.",
		InputSchema: kit.InputSchema(map[string]any{
			"page_id":       map[string]any{"type": "string", "description": "Identifies the browser tab; reused across calls for the same page"},
			"url":           map[string]any{"type": "string", "description": "URL to navigate to if page_id has no open tab yet"},
			"intent":        map[string]any{"type": "string", "enum": []any{"click", "type", "select", "hover", "check", "uncheck", "focus", "clear", "upload"}, "description": "Action to dispatch on the resolved element"},
			"target_phrase": map[string]any{"type": "string", "description": "Natural-language description of the target element"},
			"value":         map[string]any{"type": "string", "description": "Text to type when intent is type; option text when intent is select; comma-separated file paths when intent is upload; unused otherwise"},
			"max_retries":   map[string]any{"type": "integer", "description": "Overrides the server's configured healing retry budget for this call"},
			"mode":          map[string]any{"type": "string", "enum": []any{"semantic", "hybrid", "no-semantic"}, "description": "Overrides the server's configured ranking mode for this call"},
		}, []string{"page_id", "intent", "target_phrase"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*actRequest)
		page, err := s.pages.Get(ctx, r.PageID, r.URL)
		if err != nil {
			return nil, fmt.Errorf("mcpserver: resolve page: %w", err)
		}
		in := locexec.ActInput{
			Intent:       locexec.Intent(r.Intent),
			TargetPhrase: r.TargetPhrase,
			Value:        r.Value,
		}
		opts := locexec.ActOptions{URL: r.URL, MaxRetries: r.MaxRetries, Mode: r.Mode}
		return s.pipeline.Act(ctx, page, r.PageID, in, opts)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r actRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichRequestContext(r.PageID)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
