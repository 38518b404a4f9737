package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/koscakluka/ema-voice/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-3.5-turbo-1106"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0
)

// ErrCompletionTransport marks a completion that could not be fetched at all
// or was cut off by the transport.
var ErrCompletionTransport = errors.New("completion transport failed")

// Client streams chat completions from an OpenAI compatible API.
type Client struct {
	apiKey  string
	baseURL string
	model   string

	maxTokens   int
	temperature float64

	httpClient *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *Client) {
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) { c.temperature = temperature }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PromptWithStream prepares a streamed completion over messages. Nothing is
// sent until the stream's chunks are iterated.
func (c *Client) PromptWithStream(_ context.Context, messages []llms.Message, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{Messages: append([]llms.Message(nil), messages...)}
	for _, opt := range opts {
		opt(&options)
	}

	body := requestBody{
		Model:       c.model,
		Messages:    toMessages(options.Messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      true,
	}
	if options.MaxTokens != nil {
		body.MaxTokens = *options.MaxTokens
	}
	if options.Temperature != nil {
		body.Temperature = *options.Temperature
	}

	return &Stream{
		apiKey:     c.apiKey,
		url:        c.baseURL + "/chat/completions",
		httpClient: c.httpClient,
		body:       body,
	}
}
