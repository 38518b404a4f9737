package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
)

// audioInput cuts captured audio into fixed frames for the transcription
// session. Without a device, audio can still be pushed through Write.
type audioInput struct {
	base   AudioInput
	framer *audio.Framer

	mu          sync.Mutex
	isCapturing atomic.Bool
}

// newAudioInput uses the device's capture format when a device is set and
// encodingInfo otherwise.
func newAudioInput(client AudioInput, encodingInfo audio.EncodingInfo, frameDuration time.Duration, onFrame func(frame []byte)) *audioInput {
	if client != nil {
		encodingInfo = client.InputEncodingInfo()
	}
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetDefaultEncodingInfo()
	}
	if frameDuration <= 0 {
		frameDuration = audio.DefaultFrameDuration
	}

	return &audioInput{
		base:   client,
		framer: audio.NewFramer(encodingInfo.FrameSize(frameDuration), onFrame),
	}
}

// Start resets the framer and starts the capture device, if one is set.
func (a *audioInput) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isCapturing.Load() {
		return nil
	}
	a.framer.Reset()
	if a.base != nil {
		if err := a.base.StartCapture(ctx, func(pcm []byte) { a.framer.Write(pcm) }); err != nil {
			return fmt.Errorf("failed to start audio capture: %w", err)
		}
	}
	a.isCapturing.Store(true)
	return nil
}

func (a *audioInput) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isCapturing.CompareAndSwap(true, false) {
		return nil
	}
	if a.base != nil {
		if err := a.base.StopCapture(); err != nil {
			return fmt.Errorf("failed to stop audio capture: %w", err)
		}
	}
	a.framer.Reset()
	return nil
}

// Write feeds host provided PCM into the framer while capturing.
func (a *audioInput) Write(pcm []byte) (int, error) {
	if !a.isCapturing.Load() {
		return 0, fmt.Errorf("audio input not capturing")
	}
	return a.framer.Write(pcm)
}
