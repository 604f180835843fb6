package llm

import (
	"architect/internal/config"
	"context"
	"fmt"
)

// NewFromConfig builds the configured provider chain behind a Gateway
func NewFromConfig(ctx context.Context, cfg config.LLMConfig) (*Gateway, error) {
	opts := Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
	}

	primary, err := newProvider(ctx, cfg.Provider, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}

	var fallback Generator
	if cfg.FallbackProvider != "" {
		fallbackOpts := opts
		if cfg.FallbackModel != "" {
			fallbackOpts.Model = cfg.FallbackModel
		}
		fallback, err = newProvider(ctx, cfg.FallbackProvider, cfg, fallbackOpts)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
	}

	return NewGateway(primary, fallback, GatewayConfig{
		MaxRetries:    cfg.MaxRetries,
		MaxInputChars: cfg.MaxInputChars,
		Timeout:       cfg.Timeout,
	}), nil
}

func newProvider(ctx context.Context, name string, cfg config.LLMConfig, opts Options) (Generator, error) {
	switch name {
	case config.ProviderOpenRouter:
		return NewOpenRouterProvider(cfg.OpenRouterAPIKey, opts), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not configured")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, opts), nil
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not configured")
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, opts), nil
	case config.ProviderGenkit:
		return NewGenkitProvider(ctx, cfg.OpenRouterAPIKey, opts)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
