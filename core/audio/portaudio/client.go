package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-voice/core/audio"
)

const defaultFramesPerBuffer = 320

// Client drives one callback stream for capture and one for playback.
type Client struct {
	inputInfo       audio.EncodingInfo
	outputInfo      audio.EncodingInfo
	framesPerBuffer int

	mu        sync.Mutex
	capture   *portaudio.Stream
	playback  *portaudio.Stream
	capturing bool
	playing   bool

	callbackMu sync.Mutex
	onAudio    func(audio []byte)
	source     audio.SampleSource
	pcm        []byte
}

type ClientOption func(*Client)

func WithInputSampleRate(sampleRate int) ClientOption {
	return func(c *Client) {
		if sampleRate > 0 {
			c.inputInfo.SampleRate = sampleRate
		}
	}
}

func WithOutputSampleRate(sampleRate int) ClientOption {
	return func(c *Client) {
		if sampleRate > 0 {
			c.outputInfo.SampleRate = sampleRate
		}
	}
}

func WithFramesPerBuffer(frames int) ClientOption {
	return func(c *Client) {
		if frames > 0 {
			c.framesPerBuffer = frames
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		inputInfo:       audio.GetDefaultEncodingInfo(),
		outputInfo:      audio.GetDefaultOutputEncodingInfo(),
		framesPerBuffer: defaultFramesPerBuffer,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	var err error
	c.capture, err = portaudio.OpenDefaultStream(1, 0, float64(c.inputInfo.SampleRate), c.framesPerBuffer, c.processCapture)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}
	c.playback, err = portaudio.OpenDefaultStream(0, 1, float64(c.outputInfo.SampleRate), c.framesPerBuffer, c.processPlayback)
	if err != nil {
		c.capture.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open playback stream: %w", err)
	}

	return c, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callbackMu.Lock()
	c.onAudio = onAudio
	c.callbackMu.Unlock()

	if c.capturing {
		return nil
	}
	if err := c.capture.Start(); err != nil {
		return fmt.Errorf("failed to start capture stream: %w", err)
	}
	c.capturing = true
	return nil
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callbackMu.Lock()
	c.onAudio = nil
	c.callbackMu.Unlock()

	if !c.capturing {
		return nil
	}
	c.capturing = false
	if err := c.capture.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture stream: %w", err)
	}
	return nil
}

func (c *Client) StartPlayback(_ context.Context, source audio.SampleSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callbackMu.Lock()
	c.source = source
	c.callbackMu.Unlock()

	if c.playing {
		return nil
	}
	if err := c.playback.Start(); err != nil {
		return fmt.Errorf("failed to start playback stream: %w", err)
	}
	c.playing = true
	return nil
}

func (c *Client) StopPlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callbackMu.Lock()
	c.source = nil
	c.callbackMu.Unlock()

	if !c.playing {
		return nil
	}
	c.playing = false
	if err := c.playback.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback stream: %w", err)
	}
	return nil
}

func (c *Client) InputEncodingInfo() audio.EncodingInfo  { return c.inputInfo }
func (c *Client) OutputEncodingInfo() audio.EncodingInfo { return c.outputInfo }

func (c *Client) Close() error {
	err := errors.Join(c.StopCapture(), c.StopPlayback())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		err = errors.Join(err, c.capture.Close())
		c.capture = nil
	}
	if c.playback != nil {
		err = errors.Join(err, c.playback.Close())
		c.playback = nil
	}
	if termErr := portaudio.Terminate(); termErr != nil {
		logger.Warn("failed to terminate portaudio", "error", termErr)
	}
	return err
}

func (c *Client) processCapture(in []int16) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	if c.onAudio == nil {
		return
	}

	c.pcm = audio.AppendPCM16(c.pcm[:0], in)
	c.onAudio(c.pcm)
}

func (c *Client) processPlayback(out []float32) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()

	n := 0
	if c.source != nil {
		n = c.source.Fill(out)
	}
	audio.FillSilence(out[n:])
}
