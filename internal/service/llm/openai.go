package llm

import (
	"architect/internal/logger"
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider talks to the OpenAI chat completions API or any compatible endpoint
type OpenAIProvider struct {
	client *goopenai.Client
	opts   Options
}

// NewOpenAIProvider creates a client; baseURL may be empty for api.openai.com
func NewOpenAIProvider(apiKey, baseURL string, opts Options) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: goopenai.NewClientWithConfig(cfg),
		opts:   opts,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := goopenai.ChatCompletionRequest{
		Model:       p.opts.model(req),
		Messages:    msgs,
		Temperature: float32(p.opts.temperature(req)),
	}
	if p.opts.MaxTokens > 0 {
		oReq.MaxTokens = p.opts.MaxTokens
	}
	if p.opts.TopP > 0 {
		oReq.TopP = float32(p.opts.TopP)
	}
	if req.Schema != nil {
		oReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema.Schema,
				Strict: req.Schema.Strict,
			},
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"model":         oReq.Model,
		"message_count": len(msgs),
		"structured":    req.Schema != nil,
	}).Info("Calling OpenAI API")

	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices returned")
	}

	logger.Log.WithFields(logrus.Fields{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("OpenAI usage")

	return resp.Choices[0].Message.Content, nil
}
