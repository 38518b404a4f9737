package main

import (
	"fmt"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/miniaudio"
	"github.com/koscakluka/ema-voice/core/audio/portaudio"
	"github.com/koscakluka/ema-voice/internal/config"
)

type audioDevice interface {
	orchestration.AudioInput
	orchestration.AudioOutput
	Close() error
}

// newAudioDevice opens the configured backend. It returns nil for
// config.BackendNone.
func newAudioDevice(backend string, inputInfo audio.EncodingInfo) (audioDevice, error) {
	switch backend {
	case config.BackendMiniaudio:
		client, err := miniaudio.NewClient(
			miniaudio.WithInputEncodingInfo(inputInfo),
			miniaudio.WithOutputSampleRate(audio.DefaultOutputSampleRate),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio device: %w", err)
		}
		return client, nil

	case config.BackendPortaudio:
		client, err := portaudio.NewClient(
			portaudio.WithInputSampleRate(inputInfo.SampleRate),
			portaudio.WithOutputSampleRate(audio.DefaultOutputSampleRate),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio device: %w", err)
		}
		return client, nil

	case config.BackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}
