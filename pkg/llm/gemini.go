package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient talks to the Gemini API through the Google Gen AI SDK.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ LLMClient = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini client. The SDK client holds no
// connections that need closing.
func NewGeminiClient(ctx context.Context, apiKey, model string, maxTokens int, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm.gemini"),
	}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

func (c *GeminiClient) Model() string { return c.model }

// Generate sends the request as a single GenerateContent call.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, NewError(ErrorTypeUnknown, "invalid request", false, err)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		contents = append(contents, toGeminiContent(m))
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if n := firstPositive(req.MaxTokens, c.maxTokens); n > 0 {
		config.MaxOutputTokens = int32(n)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
		if req.Schema != nil {
			config.ResponseSchema = toGeminiSchema(req.Schema)
		}
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.logger.Error("Gemini request failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, withSource(ClassifyError(err), c.Provider(), c.model)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, withSource(NewError(ErrorTypeBlocked,
			fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason), false, nil), c.Provider(), c.model)
	}

	text := resp.Text()
	if text == "" {
		return nil, withSource(NewError(ErrorTypeEmpty, "no text in response", false, nil), c.Provider(), c.model)
	}

	out := &Response{Text: text}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	c.logger.Debug("Gemini request completed",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", out.PromptTokens),
		zap.Int("completion_tokens", out.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return out, nil
}

func toGeminiContent(m Message) *genai.Content {
	parts := make([]*genai.Part, 0, len(m.Images)+1)
	for _, img := range m.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	if m.Text != "" {
		parts = append(parts, genai.NewPartFromText(m.Text))
	}

	role := genai.Role(genai.RoleUser)
	if m.Role == RoleAssistant {
		role = genai.RoleModel
	}
	return genai.NewContentFromParts(parts, role)
}

func toGeminiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        geminiType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       toGeminiSchema(s.Items),
	}
	if s.Nullable {
		out.Nullable = genai.Ptr(true)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGeminiSchema(p)
		}
	}
	return out
}

func geminiType(t SchemaType) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
