package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message roles understood by every provider
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OutputSchema asks the provider for a reply conforming to a JSON Schema
type OutputSchema struct {
	Name   string
	Schema json.RawMessage
	Strict bool
}

// GenerationRequest is one call to the text generation service.
// Zero-valued Model and nil Temperature fall back to provider defaults.
type GenerationRequest struct {
	Messages    []Message
	Model       string
	Temperature *float64
	Schema      *OutputSchema
}

// Generator produces a reply for an ordered list of role-tagged messages
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Name() string
}

// Options are the per-provider defaults
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

func (o Options) model(req GenerationRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return o.Model
}

func (o Options) temperature(req GenerationRequest) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return o.Temperature
}

// withSchemaInstruction appends the schema to the system message for
// providers that have no native structured output mode.
func withSchemaInstruction(messages []Message, schema *OutputSchema) []Message {
	if schema == nil {
		return messages
	}

	instruction := fmt.Sprintf("Respond with a single JSON object and nothing else. It must validate against this JSON Schema:\n%s", schema.Schema)

	out := make([]Message, 0, len(messages)+1)
	injected := false
	for _, m := range messages {
		if m.Role == RoleSystem && !injected {
			m.Content = m.Content + "\n\n" + instruction
			injected = true
		}
		out = append(out, m)
	}
	if !injected {
		out = append([]Message{{Role: RoleSystem, Content: instruction}}, out...)
	}
	return out
}
