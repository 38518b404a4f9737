package orchestration

import (
	"strings"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/llms"
)

// toMessages turns the history into prompt messages. Turns without text are
// left out.
func toMessages(turns []conversations.TurnSnapshot) []llms.Message {
	messages := make([]llms.Message, 0, len(turns))
	for _, turn := range turns {
		content := strings.TrimSpace(turn.DisplayText)
		if content == "" {
			continue
		}

		role := llms.MessageRoleAssistant
		if turn.Kind.IsUser() {
			role = llms.MessageRoleUser
		}
		messages = append(messages, llms.Message{Role: role, Content: content})
	}
	return messages
}
