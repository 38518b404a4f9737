package orchestration

import (
	"time"

	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ema_voice"

// Metrics counts pipeline events. A nil *Metrics records nothing.
type Metrics struct {
	transcriptEvents     *prometheus.CounterVec
	framesSent           prometheus.Counter
	frameSendFailures    prometheus.Counter
	sentencesSynthesized prometheus.Counter
	synthesisFailures    prometheus.Counter
	packetDecodeErrors   prometheus.Counter
	completionFailures   prometheus.Counter
	playbackUnderruns    prometheus.Counter
	responseDuration     prometheus.Histogram
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		transcriptEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transcript_events_total",
			Help:      "Transcript events applied to user turns, by type.",
		}, []string{"type"}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "audio_frames_sent_total",
			Help:      "Captured audio frames sent for transcription.",
		}),
		frameSendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "audio_frame_send_failures_total",
			Help:      "Captured audio frames that could not be sent.",
		}),
		sentencesSynthesized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sentences_synthesized_total",
			Help:      "Sentences whose speech was fully received.",
		}),
		synthesisFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "synthesis_failures_total",
			Help:      "Sentences whose speech synthesis failed.",
		}),
		packetDecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packet_decode_errors_total",
			Help:      "Opus packets that failed to decode.",
		}),
		completionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "completion_failures_total",
			Help:      "Completions that ended with a transport error.",
		}),
		playbackUnderruns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "playback_underruns_total",
			Help:      "Device callbacks that ran out of decoded samples mid sentence.",
		}),
		responseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "response_duration_seconds",
			Help:      "Time from starting a response until its playback and reveal drained.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
	}
}

// ObserveTranscriptEvent can be installed as a transcription session's
// transcript callback.
func (m *Metrics) ObserveTranscriptEvent(event speechtotext.TranscriptEvent) {
	if m == nil {
		return
	}
	m.transcriptEvents.WithLabelValues(string(event.Type)).Inc()
}

func (m *Metrics) frameSent(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.frameSendFailures.Inc()
		return
	}
	m.framesSent.Inc()
}

func (m *Metrics) sentenceSynthesized() {
	if m != nil {
		m.sentencesSynthesized.Inc()
	}
}

func (m *Metrics) synthesisFailed() {
	if m != nil {
		m.synthesisFailures.Inc()
	}
}

func (m *Metrics) packetDecodeFailed() {
	if m != nil {
		m.packetDecodeErrors.Inc()
	}
}

func (m *Metrics) completionFailed() {
	if m != nil {
		m.completionFailures.Inc()
	}
}

func (m *Metrics) playbackUnderrun() {
	if m != nil {
		m.playbackUnderruns.Inc()
	}
}

func (m *Metrics) observeResponse(d time.Duration) {
	if m != nil {
		m.responseDuration.Observe(d.Seconds())
	}
}
