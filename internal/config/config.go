package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMiniaudio = "miniaudio"
	BackendPortaudio = "portaudio"
	// BackendNone runs without audio devices. Speech is paced by a clock and
	// discarded, nothing is captured.
	BackendNone = "none"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds everything the ema-voice binary needs to wire the pipeline.
type Config struct {
	// Transcription
	AssemblyAIAPIKey string        `envconfig:"ASSEMBLYAI_API_KEY" required:"true"`
	AssemblyAIURL    string        `envconfig:"ASSEMBLYAI_URL" default:"wss://api.assemblyai.com/v2/realtime/ws"`
	InputSampleRate  int           `envconfig:"EMA_INPUT_SAMPLE_RATE" default:"16000"`
	FrameDuration    time.Duration `envconfig:"EMA_FRAME_DURATION" default:"200ms"`
	PauseThreshold   time.Duration `envconfig:"EMA_PAUSE_THRESHOLD" default:"2s"`
	WatchdogInterval time.Duration `envconfig:"EMA_WATCHDOG_INTERVAL" default:"250ms"`

	// Completion and speech
	OpenAIAPIKey    string  `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL   string  `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	CompletionModel string  `envconfig:"EMA_COMPLETION_MODEL" default:"gpt-3.5-turbo-1106"`
	MaxTokens       int     `envconfig:"EMA_MAX_TOKENS" default:"500"`
	Temperature     float64 `envconfig:"EMA_TEMPERATURE" default:"0"`
	SpeechModel     string  `envconfig:"EMA_SPEECH_MODEL" default:"tts-1-hd"`
	Voice           string  `envconfig:"EMA_VOICE" default:"alloy"`
	Speed           float64 `envconfig:"EMA_SPEED" default:"1.0"`
	SystemContext   string  `envconfig:"EMA_SYSTEM_CONTEXT" default:""`

	// Conversation
	AutoTurnTaking bool   `envconfig:"EMA_AUTO_TURN_TAKING" default:"true"`
	RevealRate     int    `envconfig:"EMA_REVEAL_RATE" default:"170"` // words per minute
	AudioBackend   string `envconfig:"EMA_AUDIO_BACKEND" default:"miniaudio"`
	ScriptsFile    string `envconfig:"EMA_SCRIPTS_FILE" default:""`

	// MetricsAddr enables the Prometheus endpoint when set, e.g. ":9090".
	MetricsAddr string `envconfig:"EMA_METRICS_ADDR" default:""`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env file is fine, the environment may carry everything.
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv reads the environment only.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.AssemblyAIAPIKey == "" {
		return fmt.Errorf("%w: ASSEMBLYAI_API_KEY is required", ErrInvalidConfig)
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrInvalidConfig)
	}

	switch c.AudioBackend {
	case BackendMiniaudio, BackendPortaudio, BackendNone:
	default:
		return fmt.Errorf("%w: unknown audio backend %q", ErrInvalidConfig, c.AudioBackend)
	}
	if c.InputSampleRate <= 0 {
		return fmt.Errorf("%w: input sample rate must be positive, got %d", ErrInvalidConfig, c.InputSampleRate)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("%w: frame duration must be positive, got %s", ErrInvalidConfig, c.FrameDuration)
	}
	if c.PauseThreshold <= 0 {
		return fmt.Errorf("%w: pause threshold must be positive, got %s", ErrInvalidConfig, c.PauseThreshold)
	}
	if c.Speed < 0.25 || c.Speed > 4 {
		return fmt.Errorf("%w: speed must be between 0.25 and 4, got %v", ErrInvalidConfig, c.Speed)
	}
	return nil
}
