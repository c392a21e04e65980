package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/config"
)

// NewClient creates the client for the configured provider, guarded by a
// circuit breaker.
func NewClient(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (LLMClient, error) {
	var (
		client LLMClient
		err    error
	)

	switch cfg.Provider {
	case "gemini":
		client, err = NewGeminiClient(ctx, cfg.APIKey(), cfg.Model, cfg.MaxTokens, logger)
	case "openai":
		client, err = NewOpenAIClient(cfg.APIKey(), cfg.BaseURL, cfg.Model, cfg.MaxTokens, logger)
	case "anthropic":
		client, err = NewAnthropicClient(cfg.APIKey(), cfg.Model, cfg.MaxTokens, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  cfg.Breaker.Threshold,
		ResetAfter: cfg.Breaker.ResetAfter,
	})

	logger.Info("Model client ready",
		zap.String("provider", client.Provider()),
		zap.String("model", client.Model()))

	return NewBreakerClient(client, breaker, logger), nil
}
