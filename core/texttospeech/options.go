package texttospeech

import "github.com/koscakluka/ema-voice/core/audio"

const (
	DefaultModel          = "tts-1-hd"
	DefaultVoice          = "alloy"
	DefaultResponseFormat = "opus"
	DefaultSpeed          = 1.0
)

type TextToSpeechOptions struct {
	Model          string
	Voice          string
	ResponseFormat string
	Speed          float64

	// EncodingInfo is the PCM format the synthesized audio is decoded into.
	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func DefaultTextToSpeechOptions() TextToSpeechOptions {
	return TextToSpeechOptions{
		Model:          DefaultModel,
		Voice:          DefaultVoice,
		ResponseFormat: DefaultResponseFormat,
		Speed:          DefaultSpeed,
		EncodingInfo:   audio.GetDefaultOutputEncodingInfo(),
	}
}

func WithModel(model string) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithVoice(voice string) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if voice != "" {
			o.Voice = voice
		}
	}
}

// WithSpeed sets the speaking speed. Values outside 0.25 to 4.0 are ignored.
func WithSpeed(speed float64) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if speed < 0.25 || speed > 4.0 {
			return
		}
		o.Speed = speed
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
