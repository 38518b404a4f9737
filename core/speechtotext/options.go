package speechtotext

import (
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
)

const (
	DefaultPauseThreshold   = 2 * time.Second
	DefaultWatchdogInterval = 250 * time.Millisecond
	DefaultPingInterval     = 20 * time.Second
)

type SessionOptions struct {
	EncodingInfo audio.EncodingInfo

	// PauseThreshold is the silence after a final transcript that closes an
	// endpointed turn.
	PauseThreshold time.Duration
	// WatchdogInterval is how often silence is checked without inbound
	// traffic. Zero disables the watchdog.
	WatchdogInterval time.Duration
	PingInterval     time.Duration

	// TranscriptCallback observes every transcript event after it has been
	// applied to the bound turn.
	TranscriptCallback func(event TranscriptEvent)

	Clock func() time.Time
}

type SessionOption func(*SessionOptions)

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		EncodingInfo:     audio.GetDefaultEncodingInfo(),
		PauseThreshold:   DefaultPauseThreshold,
		WatchdogInterval: DefaultWatchdogInterval,
		PingInterval:     DefaultPingInterval,
		Clock:            time.Now,
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SessionOption {
	return func(o *SessionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

func WithPauseThreshold(threshold time.Duration) SessionOption {
	return func(o *SessionOptions) {
		o.PauseThreshold = threshold
	}
}

func WithWatchdogInterval(interval time.Duration) SessionOption {
	return func(o *SessionOptions) {
		o.WatchdogInterval = interval
	}
}

func WithPingInterval(interval time.Duration) SessionOption {
	return func(o *SessionOptions) {
		o.PingInterval = interval
	}
}

func WithTranscriptCallback(callback func(event TranscriptEvent)) SessionOption {
	return func(o *SessionOptions) {
		o.TranscriptCallback = callback
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(o *SessionOptions) {
		if now != nil {
			o.Clock = now
		}
	}
}
