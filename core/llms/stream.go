package llms

import "context"

type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	// FinishReason is non-nil on the chunk that ends the completion.
	FinishReason() *string
}

type StreamContentChunk interface {
	StreamChunk
	Content() string
}
