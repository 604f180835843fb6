package llm

import (
	"architect/internal/logger"
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/openai/openai-go"
	"github.com/sirupsen/logrus"
)

// GenkitProvider implements Generator using Firebase Genkit with OpenRouter via compat_oai
type GenkitProvider struct {
	genkit *genkit.Genkit
	opts   Options
}

// NewGenkitProvider creates a new Genkit provider instance configured for OpenRouter
func NewGenkitProvider(ctx context.Context, apiKey string, opts Options) (*GenkitProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not configured")
	}

	g := genkit.Init(ctx,
		genkit.WithPlugins(&compat_oai.OpenAICompatible{
			Provider: "openrouter",
			APIKey:   apiKey,
			BaseURL:  "https://openrouter.ai/api/v1",
		}),
		genkit.WithDefaultModel(genkitModel(opts.Model)),
	)

	logger.Log.WithField("default_model", opts.Model).Info("Initialized Genkit with OpenRouter provider")

	return &GenkitProvider{genkit: g, opts: opts}, nil
}

func (p *GenkitProvider) Name() string { return "genkit" }

func genkitModel(model string) string {
	if !strings.HasPrefix(model, "openrouter/") {
		return "openrouter/" + model
	}
	return model
}

// Generate runs one non-streaming generation
func (p *GenkitProvider) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := genkitModel(p.opts.model(req))

	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"message_count": len(req.Messages),
		"structured":    req.Schema != nil,
	}).Info("Calling Genkit")

	var genkitMessages []*ai.Message
	for _, msg := range withSchemaInstruction(req.Messages, req.Schema) {
		genkitMessages = append(genkitMessages, &ai.Message{
			Role:    ai.Role(msg.Role),
			Content: []*ai.Part{ai.NewTextPart(msg.Content)},
		})
	}

	config := &openai.ChatCompletionNewParams{
		Temperature: openai.Float(p.opts.temperature(req)),
	}
	if p.opts.TopP > 0 {
		config.TopP = openai.Float(p.opts.TopP)
	}
	if p.opts.MaxTokens > 0 {
		config.MaxTokens = openai.Int(int64(p.opts.MaxTokens))
	}

	resp, err := genkit.Generate(ctx, p.genkit,
		ai.WithMessages(genkitMessages...),
		ai.WithModelName(model),
		ai.WithConfig(config),
	)
	if err != nil {
		return "", fmt.Errorf("genkit generation failed: %w", err)
	}

	if resp.Usage != nil {
		logger.Log.WithFields(logrus.Fields{
			"prompt_tokens":     resp.Usage.InputTokens,
			"completion_tokens": resp.Usage.OutputTokens,
		}).Debug("Genkit usage")
	}

	return resp.Text(), nil
}
