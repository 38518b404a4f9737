package assemblyai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/koscakluka/ema-voice/core/speechtotext"
)

// dispatcher is the only writer of the bound turn while a session runs.
// Inbound messages and the silence watchdog are handled on one goroutine.
type dispatcher struct {
	session *Session
	sink    speechtotext.TranscriptSink
	now     func() time.Time

	pauseThreshold time.Duration
	onTranscript   func(speechtotext.TranscriptEvent)

	lastActivity time.Time
	endpointed   bool
}

func newDispatcher(s *Session, sink speechtotext.TranscriptSink) *dispatcher {
	onTranscript := s.options.TranscriptCallback
	if onTranscript == nil {
		onTranscript = func(speechtotext.TranscriptEvent) {}
	}

	d := &dispatcher{
		session:        s,
		sink:           sink,
		now:            s.options.Clock,
		pauseThreshold: s.options.PauseThreshold,
		onTranscript:   onTranscript,
	}
	d.lastActivity = d.now()
	return d
}

func (d *dispatcher) run(ctx context.Context, inbound <-chan []byte) {
	var watchdog <-chan time.Time
	if interval := d.session.options.WatchdogInterval; interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		watchdog = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inbound:
			d.processMessage(msg)
		case <-watchdog:
			d.checkPause()
		}
	}
}

func (d *dispatcher) processMessage(msg []byte) {
	var parsedMsg inboundMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("dropping malformed transcription message", "error", err)
		return
	}

	if parsedMsg.Error != "" {
		logger.Error("transcription service reported an error", "error", parsedMsg.Error)
		return
	}

	switch parsedMsg.MessageType {
	case messageTypePartialTranscript:
		if parsedMsg.Text != "" {
			d.sink.SetPendingText(parsedMsg.Text)
			d.touch()
		} else if d.sink.HasFinalizedText() {
			d.checkPause()
		}
		d.onTranscript(speechtotext.TranscriptEvent{Type: speechtotext.TranscriptEventPartial, Text: parsedMsg.Text})

	case messageTypeFinalTranscript:
		// Empty finals arrive during silence and must not count as speech.
		if parsedMsg.Text == "" {
			if d.sink.HasFinalizedText() {
				d.checkPause()
			}
			return
		}
		d.sink.AppendFinalizedText(parsedMsg.Text)
		d.touch()
		if !d.sink.IsActive() {
			d.endpointed = true
			d.session.turnFinished()
		}
		d.onTranscript(speechtotext.TranscriptEvent{Type: speechtotext.TranscriptEventFinal, Text: parsedMsg.Text})

	case messageTypeSessionBegins:
		logger.Info("transcription session began", "session_id", parsedMsg.SessionID, "expires_at", parsedMsg.ExpiresAt)
		d.touch()

	case messageTypeSessionTerminated:
		logger.Info("transcription session terminated")

	default:
		logger.Warn("ignoring unknown transcription message", "message_type", string(parsedMsg.MessageType))
	}
}

func (d *dispatcher) touch() {
	d.lastActivity = d.now()
}

// checkPause closes an endpointed turn once the user has been silent for the
// pause threshold after a final transcript.
func (d *dispatcher) checkPause() {
	if d.endpointed || !d.sink.UsesEndpointing() || !d.sink.HasFinalizedText() {
		return
	}

	silence := d.now().Sub(d.lastActivity)
	if silence < d.pauseThreshold {
		return
	}

	d.endpointed = true
	d.sink.Deactivate()
	d.session.turnFinished()
	logger.Debug("endpoint detected", "silence", silence)
	d.onTranscript(speechtotext.TranscriptEvent{Type: speechtotext.TranscriptEventEndpoint})
}
