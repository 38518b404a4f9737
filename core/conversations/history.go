package conversations

import "sync"

// History is the append-only, chronologically ordered list of turns.
type History struct {
	mu    sync.RWMutex
	turns []*Turn
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(turn *Turn) {
	if turn == nil {
		return
	}

	h.mu.Lock()
	h.turns = append(h.turns, turn)
	h.mu.Unlock()
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Turns returns the live turns, oldest first.
func (h *History) Turns() []*Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	turns := make([]*Turn, len(h.turns))
	copy(turns, h.turns)
	return turns
}

func (h *History) Snapshots() []TurnSnapshot {
	turns := h.Turns()
	snapshots := make([]TurnSnapshot, 0, len(turns))
	for _, turn := range turns {
		snapshots = append(snapshots, turn.Snapshot())
	}
	return snapshots
}

// LastOf returns the newest turn matching match, or nil.
func (h *History) LastOf(match func(*Turn) bool) *Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.turns) - 1; i >= 0; i-- {
		if match(h.turns[i]) {
			return h.turns[i]
		}
	}
	return nil
}

// ActiveOf returns the active turn of the given family, or nil.
func (h *History) ActiveOf(match func(Kind) bool) *Turn {
	return h.LastOf(func(t *Turn) bool {
		return match(t.Kind()) && t.IsActive()
	})
}
