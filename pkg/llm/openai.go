package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client    *openai.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client. An empty endpoint uses api.openai.com.
func NewOpenAIClient(apiKey, endpoint, model string, maxTokens int, logger *zap.Logger) (*OpenAIClient, error) {
	if apiKey == "" && endpoint == "" {
		return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(endpoint, "/")
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(clientConfig),
		endpoint:  clientConfig.BaseURL,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm.openai"),
	}, nil
}

func (c *OpenAIClient) Provider() string { return "openai" }

func (c *OpenAIClient) Model() string { return c.model }

// Generate sends the request as a chat completion. Images become data URL parts.
func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, NewError(ErrorTypeUnknown, "invalid request", false, err)
	}

	system := jsonSystemInstruction(req)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range req.Messages {
		messages = append(messages, toOpenAIMessage(m))
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: firstPositive(req.MaxTokens, c.maxTokens),
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	// JSON object mode requires an object at the root; array schemas rely on
	// the instruction and ExtractJSON instead.
	if req.JSON && (req.Schema == nil || req.Schema.Type == TypeObject) {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Error("OpenAI request failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, withSource(ClassifyError(err), c.Provider(), c.model)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, withSource(NewError(ErrorTypeEmpty, "no choices in response", false, nil), c.Provider(), c.model)
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonContentFilter {
		return nil, withSource(NewError(ErrorTypeBlocked, "response filtered", false, nil), c.Provider(), c.model)
	}

	c.logger.Debug("OpenAI request completed",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func toOpenAIMessage(m Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	if m.Role == RoleAssistant {
		role = openai.ChatMessageRoleAssistant
	}

	if len(m.Images) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: m.Text}
	}

	parts := make([]openai.ChatMessagePart, 0, len(m.Images)+1)
	if m.Text != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: m.Text})
	}
	for _, img := range m.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
