package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

	defaultAnthropicMaxTokens = 4096
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ LLMClient = (*AnthropicClient)(nil)

// NewAnthropicClient creates a client.
func NewAnthropicClient(apiKey, model string, maxTokens int, logger *zap.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm.anthropic"),
	}, nil
}

func (c *AnthropicClient) Provider() string { return "anthropic" }

func (c *AnthropicClient) Model() string { return c.model }

// Generate sends the request to the Messages API. Images become base64 blocks.
func (c *AnthropicClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, NewError(ErrorTypeUnknown, "invalid request", false, err)
	}

	system := jsonSystemInstruction(req)

	messages := make([]anthropic.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, toAnthropicMessage(m))
	}

	msgReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: firstPositive(req.MaxTokens, c.maxTokens),
		System:    system,
		Messages:  messages,
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		msgReq.Temperature = &t
	}

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, msgReq)
	if err != nil {
		c.logger.Error("Anthropic request failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, withSource(ClassifyError(err), c.Provider(), c.model)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, withSource(NewError(ErrorTypeEmpty, "no text in response", false, nil), c.Provider(), c.model)
	}

	c.logger.Debug("Anthropic request completed",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Text:             text.String(),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}, nil
}

func toAnthropicMessage(m Message) anthropic.Message {
	role := anthropic.RoleUser
	if m.Role == RoleAssistant {
		role = anthropic.RoleAssistant
	}

	content := make([]anthropic.MessageContent, 0, len(m.Images)+1)
	for _, img := range m.Images {
		content = append(content, anthropic.MessageContent{
			Type: "image",
			Source: &anthropic.MessageContentSource{
				Type:      "base64",
				MediaType: img.MIMEType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	if m.Text != "" {
		text := m.Text
		content = append(content, anthropic.MessageContent{Type: "text", Text: &text})
	}

	return anthropic.Message{Role: role, Content: content}
}
