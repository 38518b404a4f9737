package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/koscakluka/ema-voice/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseURL = "https://api.openai.com/v1"

var (
	ErrInvalidVoice       = errors.New("invalid voice")
	ErrSynthesisTransport = errors.New("speech synthesis transport failed")
)

type speechRequest struct {
	Input          string  `json:"input"`
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// TextToSpeechClient requests speech for one piece of text at a time and
// streams the encoded audio as it arrives.
type TextToSpeechClient struct {
	apiKey     string
	baseURL    string
	options    texttospeech.TextToSpeechOptions
	httpClient *http.Client
}

type ClientOption func(*TextToSpeechClient)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *TextToSpeechClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *TextToSpeechClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithOptions(opts ...texttospeech.TextToSpeechOption) ClientOption {
	return func(c *TextToSpeechClient) {
		for _, opt := range opts {
			opt(&c.options)
		}
	}
}

func NewTextToSpeechClient(apiKey string, opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		options: texttospeech.DefaultTextToSpeechOptions(),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(client)
	}

	if !slices.Contains(GetAvailableVoices(), openAIVoice(client.options.Voice)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVoice, client.options.Voice)
	}
	return client, nil
}

func (c *TextToSpeechClient) Options() texttospeech.TextToSpeechOptions {
	return c.options
}

// Synthesize streams the encoded speech for text into w until the response
// body ends. It returns the number of bytes written.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string, w io.Writer) (int64, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.options.Model),
		attribute.String("request.voice", c.options.Voice),
		attribute.Int("request.input_length", len(text)),
	)

	fail := func(err error) (int64, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	body, err := json.Marshal(speechRequest{
		Input:          text,
		Model:          c.options.Model,
		Voice:          c.options.Voice,
		ResponseFormat: c.options.ResponseFormat,
		Speed:          c.options.Speed,
	})
	if err != nil {
		return fail(fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("%w: error sending request: %w", ErrSynthesisTransport, err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if errorBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return fail(fmt.Errorf("%w: non-OK HTTP status: %s", ErrSynthesisTransport, resp.Status))
	}

	written, err := io.Copy(w, resp.Body)
	span.SetAttributes(attribute.Int64("response.bytes", written))
	if err != nil {
		err = fmt.Errorf("%w: error streaming audio: %w", ErrSynthesisTransport, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return written, err
	}
	logger.Debug("speech synthesized", "bytes", written)
	return written, nil
}
