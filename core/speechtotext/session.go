package speechtotext

import "errors"

var (
	ErrAlreadyRunning     = errors.New("transcription session already running")
	ErrNotRunning         = errors.New("transcription session not running")
	ErrTransportNotClosed = errors.New("previous transport has not closed yet")
	ErrNoTurnBound        = errors.New("no turn bound to the transcription session")
)

// TranscriptSink receives the text of one turn. While bound, the session is
// the only writer of the sink's transcript text.
type TranscriptSink interface {
	SetPendingText(text string)
	AppendFinalizedText(text string)
	HasFinalizedText() bool
	UsesEndpointing() bool
	IsActive() bool
	Deactivate() bool
}

type TranscriptEventType string

const (
	TranscriptEventPartial  TranscriptEventType = "partial"
	TranscriptEventFinal    TranscriptEventType = "final"
	TranscriptEventEndpoint TranscriptEventType = "endpoint"
)

type TranscriptEvent struct {
	Type TranscriptEventType
	Text string
}

// State is the lifecycle state of a transcription session.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	// StateOpenTurnFinished is an open transport whose bound turn is closed.
	StateOpenTurnFinished
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateOpenTurnFinished:
		return "open_turn_finished"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}
