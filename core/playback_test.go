package orchestration

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func unitWithSamples(text string, samples ...float32) *sentenceUnit {
	unit := newSentenceUnit(text)
	unit.samples.Push(samples)
	unit.samples.SignalEndOfData()
	return unit
}

func TestPlaybackSequencerPlaysUnitsInOrder(t *testing.T) {
	q := newSentenceQueue()
	first := unitWithSamples("A.", 1, 1)
	second := unitWithSamples(" B!", 2, 2, 2)
	q.Push(first)
	q.Push(second)
	q.Finish()
	p := newPlaybackSequencer(q, nil)

	out := make([]float32, 4)
	if n := p.Fill(out); n != 4 {
		t.Fatalf("expected one callback to span both units, got %d samples", n)
	}
	if out[0] != 1 || out[1] != 1 || out[2] != 2 || out[3] != 2 {
		t.Fatalf("expected samples in unit order, got %v", out)
	}
	for _, unit := range []*sentenceUnit{first, second} {
		select {
		case <-unit.PlaybackStarted():
		default:
			t.Fatalf("expected playback of %q to be marked as started", unit.text)
		}
	}

	select {
	case <-p.Done():
		t.Fatalf("expected playback not to be done with samples left")
	default:
	}

	if n := p.Fill(out); n != 1 {
		t.Fatalf("expected the last sample, got %d", n)
	}
	if n := p.Fill(out); n != 0 {
		t.Fatalf("expected no samples once drained, got %d", n)
	}
	select {
	case <-p.Done():
	default:
		t.Fatalf("expected playback to be done")
	}
}

func TestPlaybackSequencerWaitsForUndecodedUnit(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	q := newSentenceQueue()
	pending := newSentenceUnit("A.")
	q.Push(pending)
	q.Push(unitWithSamples(" B!", 2))
	p := newPlaybackSequencer(q, metrics)

	out := make([]float32, 4)
	if n := p.Fill(out); n != 0 {
		t.Fatalf("expected silence while the first unit has no audio, got %d samples", n)
	}
	if got := testutil.ToFloat64(metrics.playbackUnderruns); got != 0 {
		t.Fatalf("expected waiting for the first samples not to count as underrun, got %v", got)
	}

	pending.samples.Push([]float32{1})
	if n := p.Fill(out); n != 1 || out[0] != 1 {
		t.Fatalf("expected the first unit's sample, got %d samples %v", n, out)
	}
	if n := p.Fill(out); n != 0 {
		t.Fatalf("expected the next unit to wait until the first one ended, got %d samples", n)
	}
	if got := testutil.ToFloat64(metrics.playbackUnderruns); got != 2 {
		t.Fatalf("expected 2 underruns, got %v", got)
	}

	pending.samples.SignalEndOfData()
	if n := p.Fill(out); n != 1 || out[0] != 2 {
		t.Fatalf("expected the second unit's sample, got %d samples %v", n, out)
	}
}

func TestPlaybackSequencerSkipsSilentUnits(t *testing.T) {
	q := newSentenceQueue()
	silent := newSentenceUnit("...")
	silent.samples.SignalEndOfData()
	q.Push(silent)
	q.Push(unitWithSamples(" Hi.", 3))
	q.Finish()
	p := newPlaybackSequencer(q, nil)

	out := make([]float32, 2)
	if n := p.Fill(out); n != 1 || out[0] != 3 {
		t.Fatalf("expected the silent unit to be skipped, got %d samples %v", n, out)
	}
	select {
	case <-silent.PlaybackStarted():
	default:
		t.Fatalf("expected a skipped unit to be marked as started")
	}
}
