// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Gebo tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/backlink"
	"github.com/starford/gebo/internal/noteservice"
)

// Server wraps the MCP server with Gebo tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	links *backlink.Service
}

// New creates a new MCP server with all Gebo tools registered.
func New(svc *noteservice.Service, links *backlink.Service) *Server {
	s := &Server{svc: svc, links: links}

	s.mcp = server.NewMCPServer(
		"Gebo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("sync_note",
		mcp.WithDescription("Recompute a note's outgoing reference edges from the given content. "+
			"Returns the inserted edges and any labels that did not resolve."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the note to synchronize")),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("Owner the note must belong to")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note content containing [[references]]")),
	), s.syncNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its resolved links and backlinks."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the note")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Content may use [[references]] to other notes "+
			"by slug; they are resolved and persisted as graph edges. Read the reference "+
			"syntax first via the get_reference_syntax tool or the gebo://reference-syntax resource."),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("Owner namespace for the note")),
		mcp.WithString("slug", mcp.Description("Slug for the note (derived from title when empty)")),
		mcp.WithString("title", mcp.Description("Human-readable title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_reference_syntax",
		mcp.WithDescription("Returns the canonical reference syntax for note content. "+
			"Call this before creating or updating notes that link to other notes."),
	), s.getReferenceSyntax)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("List the persisted edges pointing at the specified note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_outgoing",
		mcp.WithDescription("List the persisted edges originating from the specified note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the source note")),
	), s.getOutgoing)

	s.mcp.AddTool(mcp.NewTool("top_referenced",
		mcp.WithDescription("Rank an owner's notes by incoming reference count."),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("Owner namespace to rank")),
	), s.topReferenced)

	// Resource: reference syntax.
	s.mcp.AddResource(
		mcp.NewResource("gebo://reference-syntax", "Reference Syntax",
			mcp.WithResourceDescription("Canonical [[reference]] syntax for note content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReferenceSyntaxResource,
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

func (s *Server) syncNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ownerID, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.Synchronize(ctx, noteID, ownerID, content)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", noteID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetNote(ctx, noteID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", noteID)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ownerID, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slugStr := req.GetString("slug", "")
	title := req.GetString("title", "")
	if slugStr == "" && title == "" {
		return mcp.NewToolResultError("slug or title is required"), nil
	}

	note, _, err := s.svc.CreateNote(ctx, ownerID, slugStr, title, content)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", slugStr)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", note.Slug, note.ID)), nil
}

func (s *Server) getReferenceSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReferenceSyntaxContract), nil
}

func (s *Server) readReferenceSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gebo://reference-syntax",
			MIMEType: "text/markdown",
			Text:     ReferenceSyntaxContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edges, err := s.links.Incoming(ctx, noteID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(edges) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, e := range edges {
		lines = append(lines, fmt.Sprintf("%s (label %q)", e.SourceNoteID, e.Label))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getOutgoing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edges, err := s.links.Outgoing(ctx, noteID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(edges) == 0 {
		return mcp.NewToolResultText("no outgoing references"), nil
	}
	var lines []string
	for _, e := range edges {
		lines = append(lines, fmt.Sprintf("%s (label %q)", e.TargetNoteID, e.Label))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) topReferenced(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ownerID, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	top, err := s.links.TopReferenced(ctx, ownerID, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(top, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
