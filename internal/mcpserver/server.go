// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes ywmark tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ywmark/internal/library"
)

const (
	formatResourceURI = "ywmark://markdown-format"
	defaultSearchMax  = 20
)

// Server wraps the MCP server with ywmark tools.
type Server struct {
	mcp *server.MCPServer
	lib *library.Service
}

// New creates a new MCP server with all ywmark tools registered.
func New(lib *library.Service, version string) *Server {
	s := &Server{lib: lib}

	s.mcp = server.NewMCPServer(
		"ywmark",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("convert_file",
		mcp.WithDescription("Convert a library file. A yWriter project (.yw7/.yw6) is exported "+
			"to Markdown next to it; a Markdown file (.md) is merged back into the project "+
			"next to it, or creates one. Edit Markdown only in the way described by "+
			"get_markdown_contract, otherwise the import is refused as a structural mismatch."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the source file (e.g. book/novel.md)")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing Markdown file on export (default false)")),
	), s.convertFile)

	s.mcp.AddTool(mcp.NewTool("inspect_project",
		mcp.WithDescription("Return the chapter and scene structure, word counts and world "+
			"elements of a project or Markdown file as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the file")),
	), s.inspectProject)

	s.mcp.AddTool(mcp.NewTool("read_markdown",
		mcp.WithDescription("Return the Markdown manuscript of a file. Projects are rendered "+
			"without writing anything to disk."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the file")),
	), s.readMarkdown)

	s.mcp.AddTool(mcp.NewTool("search_scenes",
		mcp.WithDescription("Full-text search through scene titles, text and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchScenes)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the indexed projects and Markdown files of the library."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_markdown_contract",
		mcp.WithDescription("Returns the Markdown manuscript format contract. "+
			"Call this before editing exported Markdown to keep it importable."),
	), s.getMarkdownContract)

	// Resource: Markdown format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatResourceURI, "Markdown Format Contract",
			mcp.WithResourceDescription("Layout of exported manuscripts and the edits that survive re-import."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) convertFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.lib.Convert(ctx, path, req.GetBool("overwrite", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	b.WriteString(res.Message())
	for _, d := range res.DroppedRefs {
		fmt.Fprintf(&b, "\ndropped %s reference %s in scene %s", d.Kind, d.ID, d.SceneID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) inspectProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.lib.GetProject(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.lib.Markdown(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) searchScenes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.lib.Search(ctx, query, req.GetInt("limit", defaultSearchMax))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.lib.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%q\t%d scenes\t%d words", r.Path, r.Format, r.Title, r.Scenes, r.Words))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getMarkdownContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkdownFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatResourceURI,
			MIMEType: "text/markdown",
			Text:     MarkdownFormatContract,
		},
	}, nil
}
