package audio

import (
	"encoding/binary"
	"math"
)

// AppendPCM16 appends samples to dst as little-endian 16-bit PCM.
func AppendPCM16(dst []byte, samples []int16) []byte {
	for _, sample := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(sample))
	}
	return dst
}

// PutFloat32 writes samples into dst as little-endian 32-bit floats and
// returns the number of samples that fit.
func PutFloat32(dst []byte, samples []float32) int {
	n := min(len(samples), len(dst)/4)
	for i := range n {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(samples[i]))
	}
	return n
}

// FillSilence writes silence into out.
func FillSilence(out []float32) {
	clear(out)
}
