package llms

// MessageRole describes who a message in the prompt is from.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a single role/content entry of the prompt history.
type Message struct {
	Role    MessageRole
	Content string
}
