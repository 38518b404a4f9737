package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/oggopus"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// responsePipeline produces one assistant turn: the completion stream, the
// sentence synthesizer, playback and reveal run as separate workers over a
// shared sentence queue.
type responsePipeline struct {
	llm         LLMWithStream
	synthesizer SpeechSynthesizer
	audioOutput *audioOutput
	metrics     *Metrics

	revealInterval time.Duration
	pipelineOpts   []oggopus.PipelineOption
}

func (p *responsePipeline) Run(
	ctx context.Context,
	turn *conversations.Turn,
	history []llms.Message,
	systemContext string,
) error {
	if turn == nil {
		return fmt.Errorf("response turn is required")
	}

	ctx, span := tracer.Start(ctx, "respond")
	defer span.End()
	span.SetAttributes(
		attribute.String("assistant_turn.id", turn.ID()),
		attribute.Int("request.history_length", len(history)),
	)
	started := time.Now()

	queue := newSentenceQueue()
	sequencer := newPlaybackSequencer(queue, p.metrics)
	synthesizer := &sentenceSynthesizer{
		turn:        turn,
		queue:       queue,
		synthesizer: p.synthesizer,
		newPipeline: p.newDecodePipeline,
		metrics:     p.metrics,
	}
	pacer := newTextRevealPacer(turn, queue, p.revealInterval)

	g, ctx := errgroup.WithContext(ctx)
	run := func(name string, f func(context.Context) error) {
		g.Go(func() (err error) {
			defer func() {
				if recovered := recover(); recovered != nil {
					err = fmt.Errorf("%s worker panicked: %v", name, recovered)
				}
			}()

			if err := f(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s worker failed: %w", name, err)
			}
			return nil
		})
	}

	run("completion", func(ctx context.Context) error {
		defer turn.Deactivate()
		return p.streamCompletion(ctx, turn, history, systemContext)
	})
	run("sentence synthesis", synthesizer.Run)
	run("text reveal", pacer.Run)
	run("playback", func(ctx context.Context) error {
		if err := p.audioOutput.Play(ctx, sequencer); err != nil {
			return err
		}
		defer func() {
			if err := p.audioOutput.Stop(); err != nil {
				logger.Warn("failed to stop playback", "error", err)
			}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sequencer.Done():
			return nil
		}
	})

	err := g.Wait()
	turn.Deactivate()
	p.metrics.observeResponse(time.Since(started))

	if err != nil {
		err = fmt.Errorf("one or more response workers failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// streamCompletion appends the streamed completion to the turn until a
// finish reason arrives. Transport failures end the turn with whatever text
// already arrived.
func (p *responsePipeline) streamCompletion(
	ctx context.Context,
	turn *conversations.Turn,
	history []llms.Message,
	systemContext string,
) error {
	ctx, span := tracer.Start(ctx, "stream completion")
	defer span.End()

	if p.llm == nil {
		return ErrNoLLM
	}

	stream := p.llm.PromptWithStream(ctx, history, llms.WithSystemPrompt(systemContext))
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err = fmt.Errorf("completion failed: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("completion failed", "error", err, "turn_id", turn.ID())
			p.metrics.completionFailed()
			return nil
		}

		if contentChunk, ok := chunk.(llms.StreamContentChunk); ok && contentChunk.Content() != "" {
			turn.AppendPendingText(contentChunk.Content())
		}
		if reason := chunk.FinishReason(); reason != nil {
			span.SetAttributes(attribute.String("response.finish_reason", *reason))
			break
		}
	}
	return nil
}

func (p *responsePipeline) newDecodePipeline(samples *audio.SampleQueue) (*oggopus.Pipeline, error) {
	opts := append([]oggopus.PipelineOption{
		oggopus.WithSampleRate(p.audioOutput.EncodingInfo().SampleRate),
		oggopus.WithPacketErrorHandler(func(error) { p.metrics.packetDecodeFailed() }),
	}, p.pipelineOpts...)
	return oggopus.New(samples, opts...)
}
