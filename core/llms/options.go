package llms

// PromptOptions is a set of options for a single completion request.
type PromptOptions struct {
	Messages []Message

	// MaxTokens and Temperature override the client defaults when set.
	MaxTokens   *int
	Temperature *float64
}

type PromptOption func(*PromptOptions)

// WithSystemPrompt puts prompt in front of the history as the only system
// message. Repeating this option overwrites the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *PromptOptions) {
		if prompt == "" {
			return
		}
		if len(opts.Messages) > 0 && opts.Messages[0].Role == MessageRoleSystem {
			opts.Messages[0].Content = prompt
			return
		}
		opts.Messages = append([]Message{{Role: MessageRoleSystem, Content: prompt}}, opts.Messages...)
	}
}

// WithMessages appends messages to the prompt history.
func WithMessages(messages ...Message) PromptOption {
	return func(opts *PromptOptions) {
		opts.Messages = append(opts.Messages, messages...)
	}
}

func WithMaxTokens(maxTokens int) PromptOption {
	return func(opts *PromptOptions) {
		opts.MaxTokens = &maxTokens
	}
}

func WithTemperature(temperature float64) PromptOption {
	return func(opts *PromptOptions) {
		opts.Temperature = &temperature
	}
}
