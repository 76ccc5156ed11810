// Package mcpserver implements blz's thin MCP front end: three tools
// (search, get_block, list_sources) over the same Orchestrator/Storage
// surface the CLI uses. Tool registration and response shaping follow the
// teacher's internal/mcp/server.go pattern (manual json.Unmarshal of
// req.Params.Arguments, createJSONResponse-style text content, IsError on
// failure) — spec.md's Non-goals cap MCP depth at these three tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/standardbeagle/blz/internal/orchestrator"
	"github.com/standardbeagle/blz/internal/storage"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps an Orchestrator/Storage pair behind three MCP tools.
type Server struct {
	orch    *orchestrator.Orchestrator
	storage *storage.Storage
	server  *mcp.Server
}

// New builds a Server and registers its tools. name/version identify this
// MCP server to clients (mcp.Implementation).
func New(orch *orchestrator.Orchestrator, store *storage.Storage, name, version string) *Server {
	s := &Server{
		orch:    orch,
		storage: store,
		server:  mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "Search indexed documentation sources for a query, optionally scoped to specific aliases.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":   {Type: "string", Description: "Search query"},
				"sources": {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Optional alias filter"},
				"limit":   {Type: "integer", Description: "Max results per page (default 10)"},
				"page":    {Type: "integer", Description: "Page number, 1-based (default 1)"},
			},
			Required: []string{"query"},
		},
	}, s.handleSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_block",
		Description: "Fetch the raw content of a source between two 1-based inclusive line numbers.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"alias": {Type: "string", Description: "Source alias"},
				"lines": {Type: "string", Description: "Line range, e.g. \"120-180\""},
			},
			Required: []string{"alias", "lines"},
		},
	}, s.handleGetBlock)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_sources",
		Description: "List every source currently in the cache.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleListSources)
}

type searchParams struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Page    int      `json:"page,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params searchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("search", fmt.Errorf("invalid parameters: %w", err))
	}
	if strings.TrimSpace(params.Query) == "" {
		return errorResult("search", fmt.Errorf("query is required"))
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}

	resp, err := s.orch.PerformSearch(ctx, orchestrator.Request{
		Query:       params.Query,
		AliasFilter: params.Sources,
		Limit:       limit,
		Page:        page,
	})
	if err != nil {
		return errorResult("search", err)
	}

	return jsonResult(map[string]any{
		"hits":              resp.Hits,
		"page":              resp.Page,
		"total_pages":       resp.TotalPages,
		"page_out_of_range": resp.PageOutOfRange,
		"sources":           resp.Sources,
		"duration_ms":       resp.Duration.Milliseconds(),
	})
}

type getBlockParams struct {
	Alias string `json:"alias"`
	Lines string `json:"lines"`
}

func (s *Server) handleGetBlock(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params getBlockParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("get_block", fmt.Errorf("invalid parameters: %w", err))
	}

	start, end, err := parseLineRange(params.Lines)
	if err != nil {
		return errorResult("get_block", err)
	}

	meta, err := s.storage.LoadMetadata(params.Alias)
	if err != nil {
		return errorResult("get_block", err)
	}

	text, err := s.storage.LoadContent(params.Alias, meta.Source.Variant, meta.Source.SHA256)
	if err != nil {
		return errorResult("get_block", err)
	}

	block, err := sliceLines(text, start, end)
	if err != nil {
		return errorResult("get_block", err)
	}

	return jsonResult(map[string]any{
		"alias":   params.Alias,
		"lines":   params.Lines,
		"content": block,
	})
}

func (s *Server) handleListSources(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aliases, err := s.storage.ListSources()
	if err != nil {
		return errorResult("list_sources", err)
	}

	sources := make([]map[string]any, 0, len(aliases))
	for _, alias := range aliases {
		entry := map[string]any{"alias": alias}
		if meta, err := s.storage.LoadMetadata(alias); err == nil {
			entry["url"] = meta.Source.URL
			entry["display_name"] = meta.Source.DisplayName
			entry["variant"] = meta.Source.Variant
			entry["total_lines"] = meta.LineIndex.TotalLines
		}
		sources = append(sources, entry)
	}

	return jsonResult(map[string]any{"sources": sources})
}

func parseLineRange(lines string) (start, end int, err error) {
	parts := strings.SplitN(lines, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("lines must be formatted \"start-end\", got %q", lines)
	}
	start, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start line %q: %w", parts[0], err)
	}
	end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end line %q: %w", parts[1], err)
	}
	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("invalid line range %q", lines)
	}
	return start, end, nil
}

func sliceLines(text string, start, end int) (string, error) {
	lines := strings.Split(text, "\n")
	if start > len(lines) {
		return "", fmt.Errorf("start line %d exceeds content length %d", start, len(lines))
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}, nil
}

func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	content, marshalErr := json.Marshal(map[string]any{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: true,
	}, nil
}
