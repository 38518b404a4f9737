package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/llms/openai"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/speechtotext/assemblyai"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	ttsopenai "github.com/koscakluka/ema-voice/core/texttospeech/openai"
	"github.com/koscakluka/ema-voice/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ema-voice: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	metrics := orchestration.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		server := serveMetrics(cfg.MetricsAddr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Warn("failed to shut down metrics server", "error", err)
			}
		}()
	}

	inputInfo := audio.EncodingInfo{SampleRate: cfg.InputSampleRate, Format: audio.EncodingLinear16}
	device, err := newAudioDevice(cfg.AudioBackend, inputInfo)
	if err != nil {
		return err
	}
	if device != nil {
		defer func() {
			if err := device.Close(); err != nil {
				logger.Warn("failed to close audio device", "error", err)
			}
		}()
		inputInfo = device.InputEncodingInfo()
	}

	session := assemblyai.NewSession(cfg.AssemblyAIAPIKey,
		assemblyai.WithURL(cfg.AssemblyAIURL),
		assemblyai.WithSessionOptions(
			speechtotext.WithEncodingInfo(inputInfo),
			speechtotext.WithPauseThreshold(cfg.PauseThreshold),
			speechtotext.WithWatchdogInterval(cfg.WatchdogInterval),
			speechtotext.WithTranscriptCallback(metrics.ObserveTranscriptEvent),
		),
	)

	llm := openai.NewClient(cfg.OpenAIAPIKey,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithModel(cfg.CompletionModel),
		openai.WithMaxTokens(cfg.MaxTokens),
		openai.WithTemperature(cfg.Temperature),
	)

	tts, err := ttsopenai.NewTextToSpeechClient(cfg.OpenAIAPIKey,
		ttsopenai.WithBaseURL(cfg.OpenAIBaseURL),
		ttsopenai.WithOptions(
			texttospeech.WithModel(cfg.SpeechModel),
			texttospeech.WithVoice(cfg.Voice),
			texttospeech.WithSpeed(cfg.Speed),
		),
	)
	if err != nil {
		return err
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithTranscriptionSession(session),
		orchestration.WithStreamingLLM(llm),
		orchestration.WithSpeechSynthesizer(tts),
		orchestration.WithInputEncodingInfo(inputInfo),
		orchestration.WithFrameDuration(cfg.FrameDuration),
		orchestration.WithAutoTurnTaking(cfg.AutoTurnTaking),
		orchestration.WithRevealRate(cfg.RevealRate),
		orchestration.WithSystemContext(cfg.SystemContext),
		orchestration.WithMetrics(metrics),
	}
	if device != nil {
		opts = append(opts,
			orchestration.WithAudioInput(device),
			orchestration.WithAudioOutput(device),
		)
	}
	orchestrator := orchestration.NewOrchestrator(opts...)
	defer func() {
		if err := orchestrator.Close(); err != nil {
			logger.Warn("failed to close orchestrator", "error", err)
		}
	}()

	scripts, err := loadScripts(cfg.ScriptsFile)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(newModel(orchestrator, scripts, cfg.AutoTurnTaking), tea.WithAltScreen()).Run()
	return err
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return server
}
