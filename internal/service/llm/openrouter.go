package llm

import (
	"architect/internal/logger"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterProvider implements Generator using direct OpenRouter API calls
type OpenRouterProvider struct {
	apiKey string
	url    string
	opts   Options
	client *http.Client
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(apiKey string, opts Options) *OpenRouterProvider {
	return &OpenRouterProvider{
		apiKey: apiKey,
		url:    openRouterURL,
		opts:   opts,
		client: &http.Client{},
	}
}

type Provider struct {
	RequireParameters bool `json:"require_parameters,omitempty"`
}

type JSONSchemaFormat struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type ResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Provider       *Provider       `json:"provider,omitempty"`
}

type ResponseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *ResponseUsage `json:"usage,omitempty"`
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

// Generate sends the messages and returns the first choice's content
func (p *OpenRouterProvider) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("OPENROUTER_API_KEY not configured")
	}

	model := p.opts.model(req)
	temperature := p.opts.temperature(req)

	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"temperature":   fmt.Sprintf("%.2f", temperature),
		"message_count": len(req.Messages),
		"structured":    req.Schema != nil,
	}).Info("Calling OpenRouter API")

	reqBody := ChatRequest{
		Model:       model,
		Messages:    req.Messages,
		Stream:      false,
		Temperature: &temperature,
		MaxTokens:   p.opts.MaxTokens,
	}
	if p.opts.TopP > 0 {
		topP := p.opts.TopP
		reqBody.TopP = &topP
	}
	if req.Schema != nil {
		reqBody.ResponseFormat = &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchemaFormat{
				Name:   req.Schema.Name,
				Strict: req.Schema.Strict,
				Schema: req.Schema.Schema,
			},
		}
		// only route to providers that honour response_format
		reqBody.Provider = &Provider{RequireParameters: true}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("X-Title", "Architect")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	logger.Log.WithField("response_length", len(body)).Debug("Received raw response")

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	if chatResp.Usage != nil {
		logger.Log.WithFields(logrus.Fields{
			"generation_id":     chatResp.ID,
			"prompt_tokens":     chatResp.Usage.PromptTokens,
			"completion_tokens": chatResp.Usage.CompletionTokens,
		}).Debug("OpenRouter usage")
	}

	return chatResp.Choices[0].Message.Content, nil
}
