package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	AIProvider string `json:"ai_provider,omitempty"`
	AICircuit  string `json:"ai_circuit,omitempty"`
}

// HealthToolDeps contains dependencies for the health tool. Circuit may be nil.
type HealthToolDeps struct {
	Version    string
	AIProvider string
	Circuit    func() string
}

// RegisterHealthTool adds a health check tool to the MCP server.
func RegisterHealthTool(s *server.MCPServer, deps *HealthToolDeps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and model availability"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{
			Status:     "ok",
			Version:    deps.Version,
			AIProvider: deps.AIProvider,
		}
		if deps.Circuit != nil {
			result.AICircuit = deps.Circuit()
		}
		return jsonResult(result)
	})
}
