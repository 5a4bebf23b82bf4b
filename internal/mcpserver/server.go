// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes a generated dataset to LLMs via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/browse"
)

const schemaURI = "orgsynth://schema"

// Server wraps the MCP server with dataset tools.
type Server struct {
	mcp *server.MCPServer
	svc *browse.Service
}

// New creates a new MCP server with all dataset tools registered.
func New(svc *browse.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Orgsynth",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_entities",
		mcp.WithDescription("Full-text search across entity titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchEntities)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Read one entity record with its strongest graph neighbours."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Entity reference as TYPE:id (e.g. DOC:D_0001)")),
	), s.getEntity)

	s.mcp.AddTool(mcp.NewTool("get_neighbors",
		mcp.WithDescription("List entities connected to a node in the knowledge graph, heaviest edge first."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Entity reference as TYPE:id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of neighbours (default 50)")),
	), s.getNeighbors)

	s.mcp.AddTool(mcp.NewTool("list_overlaps",
		mcp.WithDescription("List cross-team overlaps, most confident first."),
		mcp.WithString("team", mcp.Description("Only overlaps involving this team (empty for all)")),
	), s.listOverlaps)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the Markdown source of a document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id (e.g. D_0001)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Return the run report: seed, entity counts, issues and checksum."),
	), s.getReport)

	s.mcp.AddTool(mcp.NewTool("get_schema",
		mcp.WithDescription("Returns a description of entity types, graph relations and tools. "+
			"Call this first to learn how references are written."),
	), s.getSchema)

	s.mcp.AddResource(
		mcp.NewResource(schemaURI, "Dataset Schema",
			mcp.WithResourceDescription("Entity types, graph relations and issue kinds of the dataset."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSchemaResource,
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

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// errorResult turns a lookup error into a tool error the model can act on.
func errorResult(what string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", what))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	return jsonResult(results)
}

func (s *Server) getEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := browse.ParseRef(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Entity(ctx, ref)
	if err != nil {
		return errorResult(raw, err), nil
	}
	return jsonResult(detail)
}

func (s *Server) getNeighbors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := browse.ParseRef(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.svc.Neighbors(ctx, ref, req.GetInt("limit", 0))
	if err != nil {
		return errorResult(raw, err), nil
	}
	if len(nb) == 0 {
		return mcp.NewToolResultText("no neighbours found"), nil
	}
	return jsonResult(nb)
}

func (s *Server) listOverlaps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overlaps, err := s.svc.Overlaps(ctx, req.GetString("team", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(overlaps) == 0 {
		return mcp.NewToolResultText("no overlaps found"), nil
	}
	return jsonResult(overlaps)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := s.svc.Document(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) getReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.Report(ctx)
	if err != nil {
		return errorResult("report", err), nil
	}
	return jsonResult(rep)
}

func (s *Server) getSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DatasetSchema), nil
}

func (s *Server) readSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "text/markdown",
			Text:     DatasetSchema,
		},
	}, nil
}
