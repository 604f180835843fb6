package conversation

import (
	"architect/internal/repository/db"
	"architect/internal/service/llm"
	"fmt"
)

// FallbackReply is recorded as the assistant turn when generation fails
const FallbackReply = "Sorry, generating a reply failed. Please try again."

// buildMessages lays out one system instruction, the prior transcript and
// the new user message, in that order.
func buildMessages(basePrompt string, phase Phase, transcript []db.Message, userText string) []llm.Message {
	system := fmt.Sprintf("%s\n\nCurrent progress:\n- Phase: %s\n- Focus: %s\n- Messages so far: %d",
		basePrompt, phase, phase.Topic(), len(transcript))

	messages := make([]llm.Message, 0, len(transcript)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range transcript {
		role := llm.RoleUser
		if m.Role == db.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
	return messages
}
