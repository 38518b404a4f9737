package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/ema-voice/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const readBufferSize = 4096

type Stream struct {
	apiKey     string
	url        string
	httpClient *http.Client
	body       requestBody
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(
			attribute.String("request.model", s.body.Model),
			attribute.Int("request.messages", len(s.body.Messages)),
		)

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		requestBodyBytes, err := json.Marshal(s.body)
		if err != nil {
			fail(fmt.Errorf("error marshalling JSON: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(requestBodyBytes))
		if err != nil {
			fail(fmt.Errorf("error creating HTTP request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		span.AddEvent("request started")
		requestStart := time.Now()
		resp, err := s.httpClient.Do(req)
		if err != nil {
			fail(fmt.Errorf("%w: error sending request: %w", ErrCompletionTransport, err))
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			if errorBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}
			fail(fmt.Errorf("%w: non-OK HTTP status: %s", ErrCompletionTransport, resp.Status))
			return
		}

		parser := sseParser{}
		firstChunk := true
		buf := make([]byte, readBufferSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				if firstChunk {
					firstChunk = false
					span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestStart).Seconds()))
					span.AddEvent("received first chunk")
				}
				for _, frame := range parser.Feed(buf[:n]) {
					done, stop := s.processFrame(span, frame, yield)
					if done || stop {
						return
					}
				}
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					if parser.Buffered() > 0 {
						logger.Debug("dropping incomplete completion frame", "bytes", parser.Buffered())
					}
					return
				}
				fail(fmt.Errorf("%w: error reading streamed response: %w", ErrCompletionTransport, readErr))
				return
			}
		}
	}
}

// processFrame yields the chunks of one frame. done reports a finished
// completion, stop a consumer that no longer wants chunks.
func (s *Stream) processFrame(span trace.Span, frame []byte, yield func(llms.StreamChunk, error) bool) (done bool, stop bool) {
	if string(bytes.TrimSpace(frame)) == endMessage {
		return true, false
	}

	var responseBody streamingResponseBody
	if err := json.Unmarshal(frame, &responseBody); err != nil {
		logger.Warn("dropping malformed completion frame", "error", err)
		span.AddEvent("dropped malformed frame")
		return false, false
	}

	for _, choice := range responseBody.Choices {
		if choice.Delta.Content != "" || choice.FinishReason != nil {
			if !yield(StreamContentChunk{content: choice.Delta.Content, finishReason: choice.FinishReason}, nil) {
				return false, true
			}
		}
		if choice.FinishReason != nil {
			span.SetAttributes(attribute.String("response.finish_reason", *choice.FinishReason))
			return true, false
		}
	}
	return false, false
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}
