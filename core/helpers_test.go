package orchestration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/ogg"
	"github.com/koscakluka/ema-voice/core/audio/oggopus"
	"github.com/koscakluka/ema-voice/core/audio/opus"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", description)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type testChunk struct {
	content      string
	finishReason *string
}

func (c testChunk) Content() string       { return c.content }
func (c testChunk) FinishReason() *string { return c.finishReason }

type testStream struct {
	chunks []string
	err    error
	// block keeps the stream open until its context is cancelled.
	block bool
}

func (s testStream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		for _, chunk := range s.chunks {
			if !yield(testChunk{content: chunk}, nil) {
				return
			}
		}
		if s.block {
			<-ctx.Done()
			yield(nil, ctx.Err())
			return
		}
		if s.err != nil {
			yield(nil, s.err)
			return
		}
		stop := "stop"
		yield(testChunk{finishReason: &stop}, nil)
	}
}

type testLLM struct {
	stream testStream

	mu      sync.Mutex
	prompts [][]llms.Message
}

func (l *testLLM) PromptWithStream(_ context.Context, messages []llms.Message, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{Messages: append([]llms.Message(nil), messages...)}
	for _, opt := range opts {
		opt(&options)
	}

	l.mu.Lock()
	l.prompts = append(l.prompts, options.Messages)
	l.mu.Unlock()
	return l.stream
}

func (l *testLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

func (l *testLLM) prompt(i int) []llms.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prompts[i]
}

// testSynthesizer writes one Ogg page per sentence holding a single packet
// with one byte per character.
type testSynthesizer struct {
	fail error

	mu    sync.Mutex
	texts []string
}

func (s *testSynthesizer) Synthesize(_ context.Context, text string, w io.Writer) (int64, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.fail != nil {
		return 0, s.fail
	}

	page, err := ogg.Marshal(ogg.Header{Flags: ogg.FlagBOS, Serial: 7}, bytes.Repeat([]byte{1}, len(text)))
	if err != nil {
		return 0, err
	}
	n, err := w.Write(page)
	return int64(n), err
}

func (s *testSynthesizer) synthesized() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type testDecoder struct{}

func (testDecoder) DecodeFloat32(packet []byte, pcm []float32) (int, error) {
	if len(packet) == 0 {
		return 0, errors.New("empty packet")
	}
	for i := range packet {
		pcm[i] = float32(packet[0])
	}
	return len(packet), nil
}

func testDecoderOption() oggopus.PipelineOption {
	return oggopus.WithDecoderFactory(func(int, int) (opus.PacketDecoder, error) {
		return testDecoder{}, nil
	})
}

type testSession struct {
	started chan speechtotext.TranscriptSink

	mu     sync.Mutex
	sink   speechtotext.TranscriptSink
	starts int
	stops  int
	frames [][]byte
}

func newTestSession() *testSession {
	return &testSession{started: make(chan speechtotext.TranscriptSink, 8)}
}

func (s *testSession) Start(_ context.Context, sink speechtotext.TranscriptSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != nil {
		return speechtotext.ErrAlreadyRunning
	}
	s.sink = sink
	s.starts++
	s.started <- sink
	return nil
}

func (s *testSession) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return speechtotext.ErrNotRunning
	}
	s.sink = nil
	s.stops++
	return nil
}

func (s *testSession) SendAudio(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return speechtotext.ErrNoTurnBound
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *testSession) counts() (starts, stops, frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops, len(s.frames)
}

func (s *testSession) awaitStart(t *testing.T) speechtotext.TranscriptSink {
	t.Helper()
	select {
	case sink := <-s.started:
		return sink
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for the transcription session to start")
		return nil
	}
}

// brokenAudioOutput is a playback device that refuses to start.
type brokenAudioOutput struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (b *brokenAudioOutput) StartPlayback(context.Context, audio.SampleSource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	return errors.New("device unavailable")
}

func (b *brokenAudioOutput) StopPlayback() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	return nil
}

func (b *brokenAudioOutput) OutputEncodingInfo() audio.EncodingInfo { return audio.EncodingInfo{} }

func (b *brokenAudioOutput) calls() (starts, stops int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts, b.stops
}
