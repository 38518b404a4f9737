package config

import (
	"errors"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AssemblyAIAPIKey != "aai-key" || cfg.OpenAIAPIKey != "oai-key" {
		t.Fatalf("expected api keys from the environment, got %q and %q", cfg.AssemblyAIAPIKey, cfg.OpenAIAPIKey)
	}
	if cfg.InputSampleRate != 16000 || cfg.FrameDuration != 200*time.Millisecond {
		t.Fatalf("unexpected capture defaults: %d Hz, %s", cfg.InputSampleRate, cfg.FrameDuration)
	}
	if cfg.PauseThreshold != 2*time.Second || cfg.WatchdogInterval != 250*time.Millisecond {
		t.Fatalf("unexpected endpointing defaults: %s, %s", cfg.PauseThreshold, cfg.WatchdogInterval)
	}
	if cfg.CompletionModel != "gpt-3.5-turbo-1106" || cfg.MaxTokens != 500 || cfg.Temperature != 0 {
		t.Fatalf("unexpected completion defaults: %+v", cfg)
	}
	if cfg.SpeechModel != "tts-1-hd" || cfg.Voice != "alloy" || cfg.Speed != 1 {
		t.Fatalf("unexpected speech defaults: %+v", cfg)
	}
	if !cfg.AutoTurnTaking || cfg.RevealRate != 170 || cfg.AudioBackend != BackendMiniaudio {
		t.Fatalf("unexpected conversation defaults: %+v", cfg)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("EMA_AUDIO_BACKEND", "portaudio")
	t.Setenv("EMA_PAUSE_THRESHOLD", "1500ms")
	t.Setenv("EMA_AUTO_TURN_TAKING", "false")
	t.Setenv("EMA_VOICE", "nova")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AudioBackend != BackendPortaudio || cfg.PauseThreshold != 1500*time.Millisecond {
		t.Fatalf("expected overrides to apply, got %+v", cfg)
	}
	if cfg.AutoTurnTaking || cfg.Voice != "nova" {
		t.Fatalf("expected overrides to apply, got %+v", cfg)
	}
}

func TestLoadFromEnvRequiresAPIKeys(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "oai-key")

	if _, err := LoadFromEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig without the transcription api key, got %v", err)
	}
}

func TestLoadFromEnvRejectsUnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("EMA_AUDIO_BACKEND", "alsa")

	if _, err := LoadFromEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidateRejectsSpeedOutOfRange(t *testing.T) {
	setRequired(t)
	t.Setenv("EMA_SPEED", "5")

	if _, err := LoadFromEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
