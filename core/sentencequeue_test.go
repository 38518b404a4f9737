package orchestration

import "testing"

func TestSentenceQueueConsumersReadIndependently(t *testing.T) {
	q := newSentenceQueue()
	first, second := newSentenceUnit("A."), newSentenceUnit(" B!")
	q.Push(first)
	q.Push(second)

	if unit, ok := q.Peek(consumerPlayback); !ok || unit != first {
		t.Fatalf("expected playback to start at the first unit")
	}
	q.Advance(consumerPlayback)
	if unit, ok := q.Peek(consumerPlayback); !ok || unit != second {
		t.Fatalf("expected playback to move to the second unit")
	}
	if unit, ok := q.Peek(consumerReveal); !ok || unit != first {
		t.Fatalf("expected reveal to still be at the first unit")
	}
	if q.Len() != 2 {
		t.Fatalf("expected both units to be kept while reveal lags, got %d", q.Len())
	}

	q.Advance(consumerReveal)
	if q.Len() != 1 {
		t.Fatalf("expected the first unit to be released once both consumers passed it, got %d", q.Len())
	}
}

func TestSentenceQueueDrainedAfterFinish(t *testing.T) {
	q := newSentenceQueue()
	q.Push(newSentenceUnit("A."))

	q.Advance(consumerPlayback)
	if q.Drained(consumerPlayback) {
		t.Fatalf("expected queue not to be drained before the producer finished")
	}

	q.Finish()
	if !q.Drained(consumerPlayback) {
		t.Fatalf("expected playback to be drained")
	}
	if q.Drained(consumerReveal) {
		t.Fatalf("expected reveal not to be drained before it consumed the unit")
	}
}

func TestSentenceQueueChangedClosesOnPushAndFinish(t *testing.T) {
	q := newSentenceQueue()

	changed := q.Changed()
	select {
	case <-changed:
		t.Fatalf("expected changed to stay open before a push")
	default:
	}

	q.Push(newSentenceUnit("A."))
	select {
	case <-changed:
	default:
		t.Fatalf("expected push to close changed")
	}

	changed = q.Changed()
	q.Finish()
	select {
	case <-changed:
	default:
		t.Fatalf("expected finish to close changed")
	}
}

func TestSentenceQueueAdvancePastEndIsNoop(t *testing.T) {
	q := newSentenceQueue()
	q.Advance(consumerPlayback)
	q.Push(newSentenceUnit("A."))

	if _, ok := q.Peek(consumerPlayback); !ok {
		t.Fatalf("expected advancing an empty queue not to skip later units")
	}
}
