package llm

import (
	"architect/internal/logger"
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

type AnthropicProvider struct {
	client anthropic.Client
	opts   Options
}

func NewAnthropicProvider(apiKey string, opts Options, extra ...option.RequestOption) *AnthropicProvider {
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, extra...)
	return &AnthropicProvider{
		client: anthropic.NewClient(reqOpts...),
		opts:   opts,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	var systemText string
	var msgs []anthropic.MessageParam
	for _, m := range withSchemaInstruction(req.Messages, req.Schema) {
		switch m.Role {
		case RoleSystem:
			systemText = m.Content
		case RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(p.opts.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.opts.model(req)),
		MaxTokens:   maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(p.opts.temperature(req)),
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"model":         params.Model,
		"message_count": len(msgs),
		"structured":    req.Schema != nil,
	}).Info("Calling Anthropic API")

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}).Debug("Anthropic usage")

	return content, nil
}
