package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-voice/core/conversations"
)

// revealScript appends each word at its start offset and closes the turn
// after the last one.
func revealScript(ctx context.Context, turn *conversations.Turn, words []conversations.TimedWord) {
	defer turn.Deactivate()

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for _, word := range words {
		if wait := time.Until(start.Add(word.Start)); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}
		turn.AppendRevealedText(word.Text + " ")
	}
}
