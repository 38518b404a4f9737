// Package oggopus incrementally decodes an Ogg Opus byte stream into a
// sample queue.
package oggopus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/ogg"
	"github.com/koscakluka/ema-voice/core/audio/opus"
)

var (
	ErrClosed       = errors.New("pipeline closed")
	ErrPacketDecode = errors.New("failed to decode opus packet")
)

// Pipeline demuxes pages as bytes arrive and decodes every audio packet.
// Header packets are only logged. Write and Close may be called from
// different goroutines.
type Pipeline struct {
	mu sync.Mutex

	options PipelineOptions
	samples *audio.SampleQueue

	sync    ogg.SyncBuffer
	stream  *ogg.Stream
	decoder opus.PacketDecoder
	// unused is set while the decoder built by New has not served a stream.
	unused bool
	pcm    []float32

	reportedCorrupt   int
	reportedDiscarded int

	packets      int
	decodeErrors int
	closed       bool
}

// New builds the pipeline and its decoder. A decoder that cannot be built
// leaves nothing usable, so the error is returned instead of being logged.
func New(samples *audio.SampleQueue, opts ...PipelineOption) (*Pipeline, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if samples == nil {
		samples = audio.NewSampleQueue()
	}

	decoder, err := options.NewDecoder(options.SampleRate, options.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create decode pipeline: %w", err)
	}

	return &Pipeline{
		options: options,
		samples: samples,
		decoder: decoder,
		unused:  true,
		pcm:     make([]float32, opus.MaxFrameSamples*options.Channels),
	}, nil
}

func (p *Pipeline) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}

	p.sync.Write(b)
	for {
		page, ok := p.sync.PageOut()
		if !ok {
			break
		}
		p.pageIn(page)
	}
	p.reportSyncLoss()

	return len(b), nil
}

// Close signals the end of data to the sample queue.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.samples.SignalEndOfData()

	logger.Debug("decode pipeline finished",
		"packets", p.packets,
		"decode_errors", p.decodeErrors,
		"samples", p.samples.Total(),
	)
	return nil
}

// DecodeErrors returns the number of packets that failed to decode.
func (p *Pipeline) DecodeErrors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decodeErrors
}

func (p *Pipeline) pageIn(page ogg.Page) {
	if p.stream == nil || page.IsBOS() || page.Serial != p.stream.Serial() {
		if err := p.startStream(page.Serial); err != nil {
			logger.Error("failed to start logical stream", "serial", page.Serial, "error", err)
			p.stream = nil
			return
		}
	}

	if err := p.stream.PageIn(page); err != nil {
		logger.Warn("ogg page accepted with loss", "serial", page.Serial, "error", err)
	}

	for {
		packet, ok := p.stream.PacketOut()
		if !ok {
			return
		}
		p.packetIn(packet)
	}
}

func (p *Pipeline) startStream(serial uint32) error {
	if !p.unused {
		decoder, err := p.options.NewDecoder(p.options.SampleRate, p.options.Channels)
		if err != nil {
			return err
		}
		p.decoder = decoder
	}
	p.unused = false
	p.stream = ogg.NewStream(serial)
	logger.Debug("logical stream started", "serial", serial)
	return nil
}

func (p *Pipeline) packetIn(packet []byte) {
	p.packets++

	switch {
	case opus.IsHead(packet):
		head, err := opus.ParseHead(packet)
		if err != nil {
			logger.Warn("invalid OpusHead packet", "error", err)
			return
		}
		logger.Debug("OpusHead",
			"version", head.Version,
			"channels", head.Channels,
			"pre_skip", head.PreSkip,
			"input_sample_rate", head.InputSampleRate,
			"output_gain", head.OutputGain,
			"mapping_family", head.MappingFamily,
		)
		return

	case opus.IsTags(packet):
		tags, err := opus.ParseTags(packet)
		if err != nil {
			logger.Warn("invalid OpusTags packet", "error", err)
			return
		}
		logger.Debug("OpusTags", "vendor", tags.Vendor, "comments", len(tags.Comments))
		return
	}

	n, err := p.decoder.DecodeFloat32(packet, p.pcm)
	if err != nil {
		p.decodeErrors++
		err = fmt.Errorf("%w (packet %d, %d bytes): %w", ErrPacketDecode, p.packets, len(packet), err)
		logger.Error("discarding opus packet", "error", err)
		p.options.OnPacketError(err)
		return
	}

	p.samples.Push(p.pcm[:n*p.options.Channels])
}

func (p *Pipeline) reportSyncLoss() {
	if corrupt := p.sync.CorruptPages(); corrupt > p.reportedCorrupt {
		logger.Warn("dropped ogg pages with bad checksum", "count", corrupt-p.reportedCorrupt)
		p.reportedCorrupt = corrupt
	}
	if discarded := p.sync.Discarded(); discarded > p.reportedDiscarded {
		logger.Debug("skipped bytes while searching for ogg pages", "bytes", discarded-p.reportedDiscarded)
		p.reportedDiscarded = discarded
	}
}
