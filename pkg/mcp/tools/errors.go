package tools

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// It is returned as a successful tool result so the calling model sees the
// error details instead of a transport failure.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on, such as a bad plant id.
// System failures are returned as Go errors instead.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context,
// such as the plant as it stands after a change that could not be saved.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// serviceErrorResult converts a garden service error. Errors the caller can
// act on become structured results; anything else is returned as an error.
func serviceErrorResult(err error, details any) (*mcp.CallToolResult, error) {
	code, ok := serviceErrorCode(err)
	if !ok {
		return nil, err
	}
	return NewErrorResultWithDetails(code, apperrors.UserMessage(err), details), nil
}

func serviceErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "validation_failed", true
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found", true
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict", true
	case errors.Is(err, apperrors.ErrPersistence):
		return "persistence_failed", true
	}
	return "", false
}
