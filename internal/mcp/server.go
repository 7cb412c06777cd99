package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/localrag/ragmcp/internal/rag"
	"github.com/localrag/ragmcp/pkg/version"
)

// Server is the MCP stdio server for the retrieval backend. It bridges AI
// clients (Claude Code, Cursor) to the eight rag.Handlers operations.
type Server struct {
	mcp      *mcp.Server
	handlers *rag.Handlers
	logger   *slog.Logger
}

// NewServer creates a new MCP server wrapping handlers.
func NewServer(handlers *rag.Handlers) (*Server, error) {
	if handlers == nil {
		return nil, errors.New("handlers are required")
	}

	s := &Server{
		handlers: handlers,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "ragmcp",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "ragmcp", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(toolDescriptions))
	copy(out, toolDescriptions)
	return out
}

// registerTools registers the eight tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_documents",
		Description: descriptionFor("query_documents"),
	}, s.mcpQueryDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest_file",
		Description: descriptionFor("ingest_file"),
	}, s.mcpIngestFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memorize_text",
		Description: descriptionFor("memorize_text"),
	}, s.mcpMemorizeText)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update_memory",
		Description: descriptionFor("update_memory"),
	}, s.mcpUpdateMemory)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_file",
		Description: descriptionFor("delete_file"),
	}, s.mcpDeleteFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_files",
		Description: descriptionFor("list_files"),
	}, s.mcpListFiles)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cleanup_expired",
		Description: descriptionFor("cleanup_expired"),
	}, s.mcpCleanupExpired)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "status",
		Description: descriptionFor("status"),
	}, s.mcpStatus)

	s.logger.Info("MCP tools registered", slog.Int("count", len(toolDescriptions)))
}

func descriptionFor(name string) string {
	for _, t := range toolDescriptions {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

func (s *Server) mcpQueryDocuments(ctx context.Context, _ *mcp.CallToolRequest, input rag.QueryDocumentsInput) (
	*mcp.CallToolResult, rag.QueryDocumentsOutput, error,
) {
	out, err := s.handlers.QueryDocuments(ctx, input)
	if err != nil {
		return nil, rag.QueryDocumentsOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) mcpIngestFile(ctx context.Context, _ *mcp.CallToolRequest, input rag.IngestFileInput) (
	*mcp.CallToolResult, rag.IngestFileOutput, error,
) {
	out, err := s.handlers.IngestFile(ctx, input)
	if err != nil {
		return nil, rag.IngestFileOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) mcpMemorizeText(ctx context.Context, _ *mcp.CallToolRequest, input rag.MemorizeTextInput) (
	*mcp.CallToolResult, rag.MemorizeTextOutput, error,
) {
	out, err := s.handlers.MemorizeText(ctx, input)
	if err != nil {
		return nil, rag.MemorizeTextOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) mcpUpdateMemory(ctx context.Context, _ *mcp.CallToolRequest, input rag.UpdateMemoryInput) (
	*mcp.CallToolResult, rag.UpdateMemoryOutput, error,
) {
	out, err := s.handlers.UpdateMemory(ctx, input)
	if err != nil {
		return nil, rag.UpdateMemoryOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) mcpDeleteFile(ctx context.Context, _ *mcp.CallToolRequest, input rag.DeleteFileInput) (
	*mcp.CallToolResult, rag.DeleteFileOutput, error,
) {
	out, err := s.handlers.DeleteFile(ctx, input)
	if err != nil {
		return nil, rag.DeleteFileOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) mcpListFiles(ctx context.Context, _ *mcp.CallToolRequest, input rag.ListFilesInput) (
	*mcp.CallToolResult, rag.ListFilesOutput, error,
) {
	out, err := s.handlers.ListFiles(ctx, input)
	if err != nil {
		return nil, rag.ListFilesOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) mcpCleanupExpired(ctx context.Context, _ *mcp.CallToolRequest, input rag.CleanupExpiredInput) (
	*mcp.CallToolResult, rag.CleanupExpiredOutput, error,
) {
	out, err := s.handlers.CleanupExpired(ctx, input)
	if err != nil {
		return nil, rag.CleanupExpiredOutput{}, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) mcpStatus(ctx context.Context, _ *mcp.CallToolRequest, input rag.StatusInput) (
	*mcp.CallToolResult, rag.StatusOutput, error,
) {
	out, err := s.handlers.Status(ctx, input)
	if err != nil {
		return nil, rag.StatusOutput{}, MapError(err)
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport. Only stdio is
// implemented; the external interface is stdio JSON-RPC only.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources. The underlying MCP server has no
// explicit close; it stops when its context is canceled.
func (s *Server) Close() error {
	return nil
}
