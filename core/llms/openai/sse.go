package openai

import "bytes"

var (
	framePrefix     = []byte("data: ")
	frameTerminator = []byte("\n\n")
)

const endMessage = "[DONE]"

// sseParser splits a server-sent event stream into data payloads. Bytes of
// an incomplete frame are kept until the next Feed.
type sseParser struct {
	buf []byte
}

// Feed appends data to the buffer and returns the payload of every frame it
// completes, in order.
func (p *sseParser) Feed(data []byte) [][]byte {
	p.buf = append(p.buf, data...)

	var frames [][]byte
	for {
		start := bytes.Index(p.buf, framePrefix)
		if start < 0 {
			// A prefix may be split across reads.
			p.compact(max(0, len(p.buf)-len(framePrefix)+1))
			return frames
		}

		end := bytes.Index(p.buf[start:], frameTerminator)
		if end < 0 {
			p.compact(start)
			return frames
		}
		end += start

		frames = append(frames, bytes.Clone(p.buf[start+len(framePrefix):end]))
		p.buf = p.buf[end+len(frameTerminator):]
	}
}

// Buffered returns the number of bytes waiting for a frame terminator.
func (p *sseParser) Buffered() int {
	return len(p.buf)
}

func (p *sseParser) compact(from int) {
	p.buf = append(p.buf[:0], p.buf[from:]...)
}
