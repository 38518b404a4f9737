package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-voice/core/texttospeech"
)

func TestSynthesizeStreamsBody(t *testing.T) {
	var received speechRequest
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte("OggS"))
		w.(http.Flusher).Flush()
		w.Write([]byte("rest"))
	}))
	defer server.Close()

	client, err := NewTextToSpeechClient("secret", WithBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	written, err := client.Synthesize(context.Background(), "Cleared to land.", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.String() != "OggSrest" || written != 8 {
		t.Fatalf("expected streamed body, got %q (%d bytes)", out.String(), written)
	}
	if auth != "Bearer secret" || path != "/audio/speech" {
		t.Fatalf("unexpected request auth %q path %q", auth, path)
	}
	expected := speechRequest{Input: "Cleared to land.", Model: "tts-1-hd", Voice: "alloy", ResponseFormat: "opus", Speed: 1.0}
	if received != expected {
		t.Fatalf("expected %+v, got %+v", expected, received)
	}
}

func TestSynthesizeReportsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := NewTextToSpeechClient("secret", WithBaseURL(server.URL))
	var out bytes.Buffer
	if _, err := client.Synthesize(context.Background(), "Hello.", &out); !errors.Is(err, ErrSynthesisTransport) {
		t.Fatalf("expected synthesis transport error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing written, got %d bytes", out.Len())
	}
}

func TestNewClientRejectsUnknownVoice(t *testing.T) {
	_, err := NewTextToSpeechClient("secret", WithOptions(texttospeech.WithVoice("robot")))
	if !errors.Is(err, ErrInvalidVoice) {
		t.Fatalf("expected invalid voice, got %v", err)
	}

	client, err := NewTextToSpeechClient("secret", WithOptions(texttospeech.WithVoice("nova"), texttospeech.WithSpeed(9)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts := client.Options(); opts.Voice != "nova" || opts.Speed != 1.0 {
		t.Fatalf("unexpected options %+v", opts)
	}
}
