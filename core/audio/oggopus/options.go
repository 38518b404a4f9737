package oggopus

import (
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/opus"
)

type PipelineOptions struct {
	SampleRate int
	Channels   int

	NewDecoder opus.DecoderFactory

	// OnPacketError is called for every packet that failed to decode.
	OnPacketError func(err error)
}

type PipelineOption func(*PipelineOptions)

func defaultOptions() PipelineOptions {
	return PipelineOptions{
		SampleRate:    audio.DefaultOutputSampleRate,
		Channels:      1,
		NewDecoder:    opus.NewDecoder,
		OnPacketError: func(error) {},
	}
}

func WithSampleRate(sampleRate int) PipelineOption {
	return func(o *PipelineOptions) { o.SampleRate = sampleRate }
}

func WithDecoderFactory(factory opus.DecoderFactory) PipelineOption {
	return func(o *PipelineOptions) {
		if factory != nil {
			o.NewDecoder = factory
		}
	}
}

func WithPacketErrorHandler(onError func(err error)) PipelineOption {
	return func(o *PipelineOptions) {
		if onError != nil {
			o.OnPacketError = onError
		}
	}
}
