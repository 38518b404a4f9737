package llms

import "testing"

func TestWithSystemPromptPrependsSingleSystemMessage(t *testing.T) {
	opts := PromptOptions{}
	for _, opt := range []PromptOption{
		WithMessages(Message{Role: MessageRoleUser, Content: "Where is the runway?"}),
		WithSystemPrompt("You are a flight instructor."),
		WithSystemPrompt("You are a calm flight instructor."),
	} {
		opt(&opts)
	}

	if len(opts.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(opts.Messages))
	}
	if opts.Messages[0].Role != MessageRoleSystem || opts.Messages[0].Content != "You are a calm flight instructor." {
		t.Fatalf("unexpected system message %+v", opts.Messages[0])
	}
	if opts.Messages[1].Role != MessageRoleUser {
		t.Fatalf("expected user message second, got %+v", opts.Messages[1])
	}
}

func TestWithSystemPromptIgnoresEmptyPrompt(t *testing.T) {
	opts := PromptOptions{}
	WithSystemPrompt("")(&opts)
	if len(opts.Messages) != 0 {
		t.Fatalf("expected no messages, got %+v", opts.Messages)
	}
}
