package conversations

import (
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// Turn is one bounded span of user or assistant content. Its text is written
// by one owner at a time (the transcription session while listening, the
// completion stream while responding) and read concurrently through
// snapshots.
type Turn struct {
	mu    sync.Mutex
	state turnState

	// updated is closed and replaced on every mutation.
	updated  chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	now func() time.Time
}

type turnState struct {
	ID      string
	Kind    Kind
	Subkind Subkind

	FinalizedText string
	PendingText   string
	DisplayText   string
	RevealedText  string

	IsActive      bool
	ReceivedFinal bool

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// TurnSnapshot is a point-in-time copy of a turn.
type TurnSnapshot struct {
	ID      string
	Kind    Kind
	Subkind Subkind

	FinalizedText string
	PendingText   string
	DisplayText   string
	RevealedText  string

	IsActive      bool
	ReceivedFinal bool

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// VisibleText is the text a renderer should show for the turn.
func (s TurnSnapshot) VisibleText() string {
	if s.Kind.Reveals() {
		return s.RevealedText
	}
	return s.DisplayText
}

type TurnOption func(*Turn)

func WithSubkind(subkind Subkind) TurnOption {
	return func(t *Turn) { t.state.Subkind = subkind }
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) TurnOption {
	return func(t *Turn) {
		if now != nil {
			t.now = now
		}
	}
}

// WithText starts the turn with finalized text.
func WithText(text string) TurnOption {
	return func(t *Turn) {
		t.state.FinalizedText = text
		t.state.DisplayText = text
	}
}

func NewTurn(kind Kind, opts ...TurnOption) *Turn {
	t := &Turn{
		state: turnState{
			ID:       uuid.NewString(),
			Kind:     kind,
			IsActive: true,
		},
		updated: make(chan struct{}),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.state.CreatedAt = t.now()
	t.state.LastUpdatedAt = t.state.CreatedAt
	return t
}

func (t *Turn) ID() string { return t.state.ID }
func (t *Turn) Kind() Kind { return t.state.Kind }

func (t *Turn) Subkind() Subkind { return t.state.Subkind }

// SetPendingText replaces the provisional text.
func (t *Turn) SetPendingText(text string) {
	t.mutate(func(s *turnState) {
		s.PendingText = text
	})
}

// AppendFinalizedText confirms text and clears the provisional part. Control
// turns close when the confirmed text carries their phrase.
func (t *Turn) AppendFinalizedText(text string) {
	closes := closesTurn(t.state.Kind, text)
	t.mutate(func(s *turnState) {
		if s.FinalizedText != "" && text != "" && !startsWithSpace(text) {
			s.FinalizedText += " "
		}
		s.FinalizedText += text
		s.PendingText = ""
		s.ReceivedFinal = s.FinalizedText != ""
	})

	if closes {
		logger.Debug("control phrase recognized", "turn_id", t.state.ID, "kind", t.state.Kind.String())
		t.Deactivate()
	}
}

// AppendPendingText appends a streamed delta.
func (t *Turn) AppendPendingText(delta string) {
	t.mutate(func(s *turnState) {
		s.PendingText += delta
	})
}

// AppendRevealedText extends the rendered part of the turn.
func (t *Turn) AppendRevealedText(text string) {
	t.mutate(func(s *turnState) {
		s.RevealedText += text
	})
}

// Deactivate closes the turn. It reports false when the turn was already
// closed.
func (t *Turn) Deactivate() bool {
	changed := false
	t.mutate(func(s *turnState) {
		changed = s.IsActive
		s.IsActive = false
	})
	if changed {
		t.doneOnce.Do(func() { close(t.done) })
	}
	return changed
}

// UsesEndpointing reports whether silence may close the turn.
func (t *Turn) UsesEndpointing() bool {
	return t.state.Kind == KindUserUtterance
}

func (t *Turn) HasFinalizedText() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ReceivedFinal
}

func (t *Turn) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.IsActive
}

func (t *Turn) DisplayText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.DisplayText
}

// TextState returns the display text together with the activity flag so a
// reader can decide whether to wait for more text without racing a close.
func (t *Turn) TextState() (text string, isActive bool, updated <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.DisplayText, t.state.IsActive, t.updated
}

// Done is closed once the turn becomes inactive.
func (t *Turn) Done() <-chan struct{} { return t.done }

func (t *Turn) Snapshot() TurnSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var snapshot TurnSnapshot
	if err := copier.Copy(&snapshot, &t.state); err != nil {
		logger.Error("failed to copy turn state", "turn_id", t.state.ID, "error", err)
	}
	return snapshot
}

func startsWithSpace(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return unicode.IsSpace(r)
}

func (t *Turn) mutate(f func(*turnState)) {
	t.mu.Lock()
	f(&t.state)
	t.state.DisplayText = t.state.FinalizedText + t.state.PendingText
	t.state.LastUpdatedAt = t.now()
	close(t.updated)
	t.updated = make(chan struct{})
	t.mu.Unlock()
}
