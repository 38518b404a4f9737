package orchestration

import "errors"

var (
	// ErrListening is returned when an operation needs capture to be idle.
	ErrListening = errors.New("orchestrator is listening")
	// ErrResponding is returned when an operation needs the response
	// pipeline to be idle.
	ErrResponding = errors.New("orchestrator is responding")
	ErrClosed     = errors.New("orchestrator closed")

	ErrNoTranscriptionSession = errors.New("no transcription session configured")
	ErrNoLLM                  = errors.New("no streaming llm configured")
	ErrInvalidTurnKind        = errors.New("invalid turn kind")
)
