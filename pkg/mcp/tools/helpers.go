package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// plantIDArg reads a plant id argument. Ids are millisecond timestamps, so
// both JSON numbers and numeric strings are accepted.
func plantIDArg(req mcp.CallToolRequest, name string) (int64, error) {
	raw, ok := req.GetArguments()[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s is required", name)
	}

	var id int64
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(trimString(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		id = parsed
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}

	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return id, nil
}
