// Package mcp exposes the garden to MCP clients over streamable HTTP.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/mcp/tools"
	"github.com/greenthumb-app/greenthumb/pkg/middleware"
)

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Tools for a home gardener's plant collection: "+
			"list the garden, check and log watering and fertilizing, and parse care guide text."),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger.Named("mcp"),
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}

// RegisterGreenthumbTools registers every greenthumb tool.
func (s *Server) RegisterGreenthumbTools(garden *tools.GardenToolDeps, health *tools.HealthToolDeps) {
	if garden.Logger == nil {
		garden.Logger = s.logger
	}
	tools.RegisterGardenTools(s.mcp, garden)
	tools.RegisterCareGuideTools(s.mcp)
	tools.RegisterHealthTool(s.mcp, health)
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// Handler returns the streamable HTTP transport wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return middleware.MCPRequestLogger(s.logger)(s.NewStreamableHTTPServer())
}
