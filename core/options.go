package orchestration

import (
	"context"
	"io"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/oggopus"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

type OrchestratorOption func(*Orchestrator)

type LLMWithStream interface {
	PromptWithStream(ctx context.Context, messages []llms.Message, opts ...llms.PromptOption) llms.Stream
}

func WithStreamingLLM(client LLMWithStream) OrchestratorOption {
	return func(o *Orchestrator) { o.llm = client }
}

// SpeechSynthesizer streams encoded Ogg Opus speech for text into w.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) (int64, error)
}

func WithSpeechSynthesizer(client SpeechSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = client }
}

// TranscriptionSession fills one bound turn with transcripts at a time.
type TranscriptionSession interface {
	Start(ctx context.Context, sink speechtotext.TranscriptSink) error
	Stop(ctx context.Context) error
	SendAudio(frame []byte) error
}

func WithTranscriptionSession(session TranscriptionSession) OrchestratorOption {
	return func(o *Orchestrator) { o.session = session }
}

type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	InputEncodingInfo() audio.EncodingInfo
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInputClient = client }
}

type AudioOutput interface {
	StartPlayback(ctx context.Context, source audio.SampleSource) error
	StopPlayback() error
	OutputEncodingInfo() audio.EncodingInfo
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutputClient = client }
}

// WithInputEncodingInfo sets the format of audio pushed through SendAudio
// when no capture device is configured.
func WithInputEncodingInfo(encodingInfo audio.EncodingInfo) OrchestratorOption {
	return func(o *Orchestrator) { o.inputEncodingInfo = encodingInfo }
}

func WithFrameDuration(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.frameDuration = d }
}

// WithAutoTurnTaking switches between the automatic listen/respond loop and
// host driven turns. It is enabled by default.
func WithAutoTurnTaking(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.autoTurnTaking = enabled }
}

// WithRevealRate sets the pace of revealed response text in words per minute.
func WithRevealRate(wpm int) OrchestratorOption {
	return func(o *Orchestrator) {
		if wpm > 0 {
			o.revealInterval = revealInterval(wpm)
		}
	}
}

// WithSystemContext sets the system prompt used when Respond is called
// without one.
func WithSystemContext(systemContext string) OrchestratorOption {
	return func(o *Orchestrator) { o.systemContext = systemContext }
}

func WithMetrics(metrics *Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = metrics }
}

// WithDecodePipelineOptions adds options to every sentence's decode pipeline.
func WithDecodePipelineOptions(opts ...oggopus.PipelineOption) OrchestratorOption {
	return func(o *Orchestrator) { o.pipelineOpts = append(o.pipelineOpts, opts...) }
}
