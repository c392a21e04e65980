package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/greenthumb-app/greenthumb/pkg/careguide"
)

// RegisterCareGuideTools registers tools that work on care guide text.
func RegisterCareGuideTools(s *server.MCPServer) {
	tool := mcp.NewTool(
		"parse_care_text",
		mcp.WithDescription(
			"Splits a free-text care guide into a summary and topic sections. "+
				"The first line is the summary; each line of the form '### Topic:' starts a section.",
		),
		mcp.WithString(
			"text",
			mcp.Required(),
			mcp.Description("Care guide text using '### Topic:' headings"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		return jsonResult(careguide.Parse(text))
	})
}
