package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenthumb-app/greenthumb/pkg/retry"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
		Provider:   "gemini",
		Model:      "gemini-2.5-flash",
		Cause:      errors.New("boom"),
	}
	assert.Equal(t, "endpoint HTTP 503 provider=gemini model=gemini-2.5-flash server error: boom", err.Error())

	minimal := &Error{Type: ErrorTypeEmpty, Message: "no text in response"}
	assert.Equal(t, "empty_response no text in response", minimal.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewError(ErrorTypeEndpoint, "connection failed", true, cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("identify: %w", err), cause)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
		status    int
	}{
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout, true, 0},
		{"canceled", context.Canceled, ErrorTypeTimeout, false, 0},
		{"wrapped deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrorTypeTimeout, true, 0},
		{"openai auth", errors.New("error, status code: 401, message: Incorrect API key provided"), ErrorTypeAuth, false, 401},
		{"gemini bad key", errors.New("Error 400, Message: API key not valid. Please pass a valid API key., Status: INVALID_ARGUMENT"), ErrorTypeAuth, false, 400},
		{"unknown model", errors.New("Error 404, Message: models/gemini-9 is not found for API version v1beta"), ErrorTypeModel, false, 404},
		{"missing endpoint", errors.New("POST http://localhost:9999/v1/chat: 404 page not found"), ErrorTypeEndpoint, false, 404},
		{"rate limit", errors.New("error, status code: 429, message: Rate limit reached"), ErrorTypeRateLimit, true, 429},
		{"quota", errors.New("Error 429, Message: Resource has been exhausted (e.g. check quota)., Status: RESOURCE_EXHAUSTED"), ErrorTypeRateLimit, true, 429},
		{"refused", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), ErrorTypeEndpoint, true, 0},
		{"timeout text", errors.New("net/http: request canceled (Client.Timeout exceeded while awaiting headers)"), ErrorTypeTimeout, true, 0},
		{"safety", errors.New("response was blocked due to SAFETY"), ErrorTypeBlocked, false, 0},
		{"server error", errors.New("error, status code: 503, message: Service Unavailable"), ErrorTypeEndpoint, true, 503},
		{"overloaded", errors.New("anthropic api error type: overloaded_error, message: Overloaded"), ErrorTypeEndpoint, true, 0},
		{"unknown", errors.New("something odd happened"), ErrorTypeUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_PreservesExistingError(t *testing.T) {
	original := NewError(ErrorTypeBlocked, "prompt blocked", false, nil)
	original.Provider = "gemini"

	got := ClassifyError(fmt.Errorf("diagnose: %w", original))
	assert.Same(t, original, got)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrorTypeRateLimit, "rate limited", true, nil)))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", NewError(ErrorTypeTimeout, "t", true, nil))))
	assert.False(t, IsRetryable(NewError(ErrorTypeAuth, "auth", false, nil)))
	assert.False(t, IsRetryable(errors.New("plain")))

	// The retry package sees the same answer through its interface.
	assert.True(t, retry.IsRetryable(NewError(ErrorTypeTimeout, "t", true, nil)))
	assert.False(t, retry.IsRetryable(NewError(ErrorTypeBlocked, "b", false, nil)))
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeBlocked, GetErrorType(fmt.Errorf("x: %w", NewError(ErrorTypeBlocked, "b", false, nil))))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(errors.New("plain")))
}

func TestWithSource(t *testing.T) {
	err := withSource(NewError(ErrorTypeEmpty, "empty", false, nil), "openai", "gpt-4o-mini")
	assert.Equal(t, "openai", err.Provider)
	assert.Equal(t, "gpt-4o-mini", err.Model)

	preset := &Error{Type: ErrorTypeAuth, Provider: "anthropic", Model: "claude"}
	withSource(preset, "openai", "gpt")
	assert.Equal(t, "anthropic", preset.Provider)
	assert.Equal(t, "claude", preset.Model)
}
