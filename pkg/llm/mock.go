package llm

import (
	"context"
	"sync"
)

// MockLLMClient is a configurable mock for testing code that calls a model.
// Set GenerateFunc to control behavior; requests are recorded for assertions.
type MockLLMClient struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns an empty response and nil error.
	GenerateFunc func(ctx context.Context, req *Request) (*Response, error)

	// ProviderName defaults to "mock".
	ProviderName string
	// ModelName defaults to "mock-model".
	ModelName string

	mu       sync.Mutex
	requests []*Request
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		ProviderName: "mock",
		ModelName:    "mock-model",
	}
}

// RespondWith returns a mock that always answers with text.
func RespondWith(text string) *MockLLMClient {
	m := NewMockLLMClient()
	m.GenerateFunc = func(context.Context, *Request) (*Response, error) {
		return &Response{Text: text}, nil
	}
	return m
}

// FailWith returns a mock that always fails with err.
func FailWith(err error) *MockLLMClient {
	m := NewMockLLMClient()
	m.GenerateFunc = func(context.Context, *Request) (*Response, error) {
		return nil, err
	}
	return m
}

// Generate implements LLMClient.
func (m *MockLLMClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &Response{}, nil
}

// Provider implements LLMClient.
func (m *MockLLMClient) Provider() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Model implements LLMClient.
func (m *MockLLMClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Calls returns the number of Generate calls.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns copies of the recorded requests in call order.
func (m *MockLLMClient) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil.
func (m *MockLLMClient) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

var _ LLMClient = (*MockLLMClient)(nil)

// cloneRequest copies the message slice so later caller mutations do not
// change what the mock recorded.
func cloneRequest(req *Request) *Request {
	if req == nil {
		return nil
	}
	c := *req
	c.Messages = append([]Message(nil), req.Messages...)
	return &c
}
