// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala knowledge-store tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/kb"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/search"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp    *server.MCPServer
	store  *kb.Store
	engine *search.Engine
}

// New creates a new MCP server with all Othala tools registered.
func New(store *kb.Store, engine *search.Engine) *Server {
	s := &Server{store: store, engine: engine}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("store_entry",
		mcp.WithDescription("Store a structured knowledge record. The record MUST be a JSON "+
			"object with at least a name or title field (used to derive the identifier). "+
			"Read the othala://record-format resource for the record contract."),
		mcp.WithString("record", mcp.Required(), mcp.Description("JSON object with the record's fields")),
		mcp.WithString("category", mcp.Description("Category partition (default: general)")),
		mcp.WithString("id", mcp.Description("Optional explicit identifier; derived from name/title when omitted")),
	), s.storeEntry)

	s.mcp.AddTool(mcp.NewTool("store_text",
		mcp.WithDescription("Store a free-text knowledge entry with a title."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text content to store")),
		mcp.WithString("title", mcp.Description("Title for the entry; a timestamp title is used when omitted")),
		mcp.WithString("category", mcp.Description("Category partition (default: general)")),
	), s.storeText)

	s.mcp.AddTool(mcp.NewTool("retrieve_entry",
		mcp.WithDescription("Retrieve the full record for an identifier."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry identifier or display name")),
		mcp.WithString("category", mcp.Description("Category to look in; all categories are scanned when omitted")),
	), s.retrieveEntry)

	s.mcp.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Keyword search across entries. Matches any keyword in any "+
			"string field, ranked by number of distinct keywords matched."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("category", mcp.Description("Category to search; all categories when omitted")),
	), s.searchKnowledge)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List entry summaries, all categories or one."),
		mcp.WithString("category", mcp.Description("Optional category to list (empty for all)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Delete an entry by identifier."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry identifier")),
		mcp.WithString("category", mcp.Description("Category to look in; first alphabetical match when omitted")),
	), s.deleteEntry)

	// Resource: record format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://record-format", "Record Format Contract",
			mcp.WithResourceDescription("Canonical JSON record format that all stored entries follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) storeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("record")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var rec models.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("record is not a JSON object: %v", err)), nil
	}
	category := req.GetString("category", "")
	id := req.GetString("id", "")

	finalID, err := s.store.Store(rec, category, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if category == "" {
		category = kb.DefaultCategory
	}
	return mcp.NewToolResultText(fmt.Sprintf("stored: %s/%s", category, finalID)), nil
}

func (s *Server) storeText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := req.GetString("title", "")
	category := req.GetString("category", "")

	id, err := s.store.StoreText(text, title, category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if category == "" {
		category = kb.DefaultCategory
	}
	return mcp.NewToolResultText(fmt.Sprintf("stored: %s/%s", category, id)), nil
}

func (s *Server) retrieveEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.store.Retrieve(id, req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchKnowledge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, skipped, err := s.engine.Search(query, req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload := map[string]any{
		"results": results,
		"skipped": skipped,
	}
	out, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sums, _, err := s.store.List(req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sums) == 0 {
		return mcp.NewToolResultText("no entries"), nil
	}
	var lines []string
	for _, sum := range sums {
		line := fmt.Sprintf("%s/%s", sum.Category, sum.ID)
		if sum.Kind != "" {
			line += " [" + sum.Kind + "]"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) deleteEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := s.store.Delete(id, req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s/%s", category, s.store.Normalize(id))), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://record-format",
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
