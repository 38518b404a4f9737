package audio

import "sync"

// Framer cuts an arbitrary stream of PCM bytes into frames of a fixed size.
// Capture devices deliver periods that rarely line up with the frame size a
// transcription service expects, so leftovers are carried to the next write.
type Framer struct {
	mu      sync.Mutex
	size    int
	pending []byte
	onFrame func(frame []byte)
}

func NewFramer(frameSize int, onFrame func(frame []byte)) *Framer {
	if frameSize <= 0 {
		frameSize = GetDefaultEncodingInfo().FrameSize(DefaultFrameDuration)
	}
	if onFrame == nil {
		onFrame = func([]byte) {}
	}

	return &Framer{
		size:    frameSize,
		pending: make([]byte, 0, frameSize*2),
		onFrame: onFrame,
	}
}

// Write buffers p and emits every complete frame. Frames are handed out as
// fresh slices so receivers may keep them.
func (f *Framer) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.pending = append(f.pending, p...)
	var frames [][]byte
	offset := 0
	for len(f.pending)-offset >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.pending[offset:offset+f.size])
		frames = append(frames, frame)
		offset += f.size
	}
	if offset > 0 {
		n := copy(f.pending, f.pending[offset:])
		f.pending = f.pending[:n]
	}
	f.mu.Unlock()

	for _, frame := range frames {
		f.onFrame(frame)
	}
	return len(p), nil
}

// Reset drops any partial frame.
func (f *Framer) Reset() {
	f.mu.Lock()
	f.pending = f.pending[:0]
	f.mu.Unlock()
}
