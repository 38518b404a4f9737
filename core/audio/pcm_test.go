package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestAppendPCM16(t *testing.T) {
	got := AppendPCM16(nil, []int16{1, -1, 256})
	expected := []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x01}
	if string(got) != string(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestPutFloat32StopsAtDestinationSize(t *testing.T) {
	dst := make([]byte, 10)
	n := PutFloat32(dst, []float32{0.5, -1, 0.25})
	if n != 2 {
		t.Fatalf("expected 2 samples written, got %d", n)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(dst[4:])); v != -1 {
		t.Fatalf("expected -1, got %v", v)
	}
}
