package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anthropicReply = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest","content":[{"type":"text","text":"{\"appName\":\"x\"}"}],"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`

func TestAnthropicProvider_Generate(t *testing.T) {
	schema := &OutputSchema{Name: "app_specification", Schema: json.RawMessage(`{"type":"object"}`), Strict: true}

	tests := []struct {
		name        string
		messages    []Message
		schema      *OutputSchema
		wantSystem  []string
		noSystem    bool
		wantHistory int
	}{
		{
			name:        "schema merged into system prompt",
			messages:    []Message{{Role: RoleSystem, Content: "You write app specs."}, {Role: RoleUser, Content: "u"}},
			schema:      schema,
			wantSystem:  []string{"You write app specs.\n\nRespond with a single JSON object", `{"type":"object"}`},
			wantHistory: 1,
		},
		{
			name:        "schema without system prompt",
			messages:    []Message{{Role: RoleUser, Content: "u"}},
			schema:      schema,
			wantSystem:  []string{"Respond with a single JSON object"},
			wantHistory: 1,
		},
		{
			name: "plain chat",
			messages: []Message{
				{Role: RoleSystem, Content: "You interview."},
				{Role: RoleUser, Content: "u"},
				{Role: RoleAssistant, Content: "a"},
				{Role: RoleUser, Content: "u2"},
			},
			wantSystem:  []string{"You interview."},
			wantHistory: 3,
		},
		{
			name:        "no system prompt at all",
			messages:    []Message{{Role: RoleUser, Content: "u"}},
			noSystem:    true,
			wantHistory: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/messages", r.URL.Path)
				assert.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, anthropicReply)
			}))
			defer server.Close()

			p := NewAnthropicProvider("sk-test",
				Options{Model: "claude-3-5-haiku-latest", MaxTokens: 100},
				option.WithBaseURL(server.URL), option.WithMaxRetries(0))
			reply, err := p.Generate(context.Background(), GenerationRequest{Messages: tt.messages, Schema: tt.schema})
			require.NoError(t, err)
			assert.Equal(t, `{"appName":"x"}`, reply)

			assert.Equal(t, "claude-3-5-haiku-latest", raw["model"])
			assert.EqualValues(t, 100, raw["max_tokens"])
			assert.Len(t, raw["messages"], tt.wantHistory)

			if tt.noSystem {
				assert.NotContains(t, raw, "system")
				return
			}
			system, ok := raw["system"].([]any)
			require.True(t, ok, "system should be a list of text blocks")
			require.Len(t, system, 1)
			text := system[0].(map[string]any)["text"].(string)
			for _, want := range tt.wantSystem {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestAnthropicProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`)
	}))
	defer server.Close()

	p := NewAnthropicProvider("sk-test", Options{Model: "nope"}, option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	_, err := p.Generate(context.Background(), GenerationRequest{Messages: []Message{{Role: RoleUser, Content: "u"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic chat")
}
