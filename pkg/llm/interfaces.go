// Package llm is the boundary to hosted generative models. Requests are
// provider-neutral; each provider client translates them to its own SDK.
package llm

import (
	"context"
	"errors"
	"strings"
)

// LLMClient generates one response per request.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the provider name, e.g. "gemini".
	Provider() string

	// Model returns the configured model name.
	Model() string
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is raw image bytes with their MIME type. Images are forwarded to the
// provider as-is.
type Image struct {
	MIMEType string
	Data     []byte
}

// Message is one turn of a conversation.
type Message struct {
	Role   Role
	Text   string
	Images []Image
}

// Request is a single generation request.
type Request struct {
	SystemInstruction string
	Messages          []Message

	// JSON asks for a JSON-only response. Schema, when set, constrains its shape
	// natively on providers that support it and is described in the system
	// instruction elsewhere.
	JSON   bool
	Schema *Schema

	// Temperature is passed through when non-nil.
	Temperature *float64
	MaxTokens   int
}

// Validate checks the request has at least one message and alternating roles
// ending with the user.
func (r *Request) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("request has no messages")
	}
	if r.Messages[len(r.Messages)-1].Role != RoleUser {
		return errors.New("last message must come from the user")
	}
	for _, m := range r.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return errors.New("unknown message role " + string(m.Role))
		}
		if strings.TrimSpace(m.Text) == "" && len(m.Images) == 0 {
			return errors.New("message has neither text nor images")
		}
	}
	return nil
}

// UserText returns a conversation of one user message.
func UserText(text string, images ...Image) []Message {
	return []Message{{Role: RoleUser, Text: text, Images: images}}
}

// Response is the generated text and token usage.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Float returns a pointer to f, for Request.Temperature.
func Float(f float64) *float64 {
	return &f
}
