package orchestration

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/oggopus"
	"github.com/koscakluka/ema-voice/core/conversations"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const sentenceTerminators = ".?!"

// nextSentence returns the text up to and including the first terminator.
func nextSentence(text string) (string, bool) {
	i := strings.IndexAny(text, sentenceTerminators)
	if i < 0 {
		return "", false
	}
	return text[:i+1], true
}

func isBlank(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) < 0
}

type pipelineFactory func(samples *audio.SampleQueue) (*oggopus.Pipeline, error)

// sentenceSynthesizer cuts the streamed response into sentences and turns
// each into a unit with its speech, one synthesis request at a time.
type sentenceSynthesizer struct {
	turn        *conversations.Turn
	queue       *sentenceQueue
	synthesizer SpeechSynthesizer
	newPipeline pipelineFactory
	metrics     *Metrics
}

func (s *sentenceSynthesizer) Run(ctx context.Context) error {
	defer s.queue.Finish()

	offset := 0
	for {
		text, isActive, updated := s.turn.TextState()
		if sentence, ok := nextSentence(text[offset:]); ok {
			offset += len(sentence)
			if err := s.synthesize(ctx, sentence); err != nil {
				return err
			}
			continue
		}

		if !isActive {
			// The completion ended without a terminator.
			if rest := text[offset:]; !isBlank(rest) {
				if err := s.synthesize(ctx, rest); err != nil {
					return err
				}
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-updated:
		}
	}
}

// synthesize queues a unit for sentence and streams its speech into the
// unit's decoder. Only a decoder that cannot be built is returned as an
// error, synthesis failures leave the unit silent.
func (s *sentenceSynthesizer) synthesize(ctx context.Context, sentence string) error {
	unit := newSentenceUnit(sentence)
	if isBlank(sentence) || s.synthesizer == nil {
		unit.samples.SignalEndOfData()
		s.queue.Push(unit)
		return nil
	}

	pipeline, err := s.newPipeline(unit.samples)
	if err != nil {
		unit.samples.SignalEndOfData()
		s.queue.Push(unit)
		return fmt.Errorf("failed to prepare sentence audio: %w", err)
	}
	s.queue.Push(unit)

	ctx, span := tracer.Start(ctx, "synthesize sentence")
	defer span.End()
	span.SetAttributes(attribute.Int("sentence.length", len(sentence)))

	_, err = s.synthesizer.Synthesize(ctx, sentence, pipeline)
	if closeErr := pipeline.Close(); closeErr != nil {
		logger.Debug("failed to close decode pipeline", "error", closeErr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		err = fmt.Errorf("failed to synthesize sentence: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("failed to synthesize sentence", "error", err, "turn_id", s.turn.ID())
		s.metrics.synthesisFailed()
		return nil
	}

	span.SetAttributes(
		attribute.Int("sentence.samples", unit.samples.Total()),
		attribute.Int("sentence.decode_errors", pipeline.DecodeErrors()),
	)
	s.metrics.sentenceSynthesized()
	return nil
}
