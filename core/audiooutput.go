package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
)

const clockDriverPeriod = 20 * time.Millisecond

// audioOutput hands a sample source to the playback device. Without a device
// the source is drained in real time and discarded, so playback ordering and
// reveal pacing behave the same on headless hosts.
type audioOutput struct {
	base         AudioOutput
	encodingInfo audio.EncodingInfo

	mu          sync.Mutex
	stopDriver  context.CancelFunc
	driverTasks sync.WaitGroup
}

func newAudioOutput(client AudioOutput) *audioOutput {
	encodingInfo := audio.GetDefaultOutputEncodingInfo()
	if client != nil {
		if info := client.OutputEncodingInfo(); !info.IsZero() {
			encodingInfo = info
		}
	}
	return &audioOutput{base: client, encodingInfo: encodingInfo}
}

func (a *audioOutput) EncodingInfo() audio.EncodingInfo { return a.encodingInfo }

// Play hands source to the device. When there is no device, or the device
// refuses to start, the source is drained by the clock driver instead.
func (a *audioOutput) Play(ctx context.Context, source audio.SampleSource) error {
	if a.base != nil {
		err := a.base.StartPlayback(ctx, source)
		if err == nil {
			return nil
		}
		logger.Warn("playback device failed to start, draining audio on the clock", "error", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopDriver != nil {
		a.stopDriver()
	}
	driverCtx, cancel := context.WithCancel(ctx)
	a.stopDriver = cancel

	a.driverTasks.Add(1)
	go func() {
		defer a.driverTasks.Done()
		a.drive(driverCtx, source)
	}()
	return nil
}

func (a *audioOutput) Stop() error {
	a.mu.Lock()
	driving := a.stopDriver != nil
	if driving {
		a.stopDriver()
		a.stopDriver = nil
	}
	a.mu.Unlock()

	if driving {
		a.driverTasks.Wait()
		return nil
	}
	if a.base != nil {
		if err := a.base.StopPlayback(); err != nil {
			return fmt.Errorf("failed to stop playback: %w", err)
		}
	}
	return nil
}

func (a *audioOutput) drive(ctx context.Context, source audio.SampleSource) {
	buf := make([]float32, a.encodingInfo.SampleRate*int(clockDriverPeriod)/int(time.Second))
	ticker := time.NewTicker(clockDriverPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			source.Fill(buf)
		}
	}
}
