package orchestration

import (
	"context"
	"strings"
	"time"

	"github.com/koscakluka/ema-voice/core/conversations"
)

const DefaultRevealRate = 170

// revealInterval returns the delay between words at wpm words per minute.
func revealInterval(wpm int) time.Duration {
	if wpm <= 0 {
		wpm = DefaultRevealRate
	}
	return time.Minute / time.Duration(wpm)
}

// textRevealPacer appends the words of every unit to the turn's revealed
// text once the unit's audio started playing.
type textRevealPacer struct {
	turn     *conversations.Turn
	queue    *sentenceQueue
	interval time.Duration
}

func newTextRevealPacer(turn *conversations.Turn, queue *sentenceQueue, interval time.Duration) *textRevealPacer {
	return &textRevealPacer{turn: turn, queue: queue, interval: interval}
}

func (p *textRevealPacer) Run(ctx context.Context) error {
	for {
		changed := p.queue.Changed()
		unit, ok := p.queue.Peek(consumerReveal)
		if !ok {
			if p.queue.Drained(consumerReveal) {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-unit.PlaybackStarted():
		}

		if err := p.reveal(ctx, unit.text); err != nil {
			return err
		}
		p.queue.Advance(consumerReveal)
	}
}

func (p *textRevealPacer) reveal(ctx context.Context, text string) error {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for i, word := range words {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		p.turn.AppendRevealedText(word + " ")
	}
	return nil
}
