package opus

import (
	"fmt"

	hopus "github.com/hraban/opus"
)

// MaxFrameSamples fits the longest Opus frame (120 ms) at 48 kHz.
const MaxFrameSamples = 5760

// PacketDecoder decodes one Opus packet into interleaved float32 samples and
// returns the number of samples per channel.
type PacketDecoder interface {
	DecodeFloat32(packet []byte, pcm []float32) (int, error)
}

// DecoderFactory builds a decoder for the given output format.
type DecoderFactory func(sampleRate, channels int) (PacketDecoder, error)

// NewDecoder returns a libopus backed decoder.
func NewDecoder(sampleRate, channels int) (PacketDecoder, error) {
	dec, err := hopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder (%d Hz, %d channels): %w", sampleRate, channels, err)
	}
	return dec, nil
}
