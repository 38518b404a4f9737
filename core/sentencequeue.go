package orchestration

import (
	"sync"

	"github.com/koscakluka/ema-voice/core/audio"
)

// sentenceUnit is one sentence of a response with its decoded speech.
type sentenceUnit struct {
	text    string
	samples *audio.SampleQueue

	playbackStarted chan struct{}
	startOnce       sync.Once
}

func newSentenceUnit(text string) *sentenceUnit {
	return &sentenceUnit{
		text:            text,
		samples:         audio.NewSampleQueue(),
		playbackStarted: make(chan struct{}),
	}
}

func (u *sentenceUnit) markPlaybackStarted() {
	u.startOnce.Do(func() { close(u.playbackStarted) })
}

// PlaybackStarted is closed once the first samples of the unit were handed to
// the device, or once an empty unit was skipped.
func (u *sentenceUnit) PlaybackStarted() <-chan struct{} { return u.playbackStarted }

type queueConsumer int

const (
	consumerPlayback queueConsumer = iota
	consumerReveal
	consumerCount
)

// sentenceQueue is a FIFO of units read independently by the playback and
// reveal consumers. A unit is dropped once both consumers moved past it.
type sentenceQueue struct {
	mu      sync.Mutex
	units   []*sentenceUnit
	base    int
	cursors [consumerCount]int

	producerDone bool
	// changed is closed and replaced on every push and on finish.
	changed chan struct{}
}

func newSentenceQueue() *sentenceQueue {
	return &sentenceQueue{changed: make(chan struct{})}
}

func (q *sentenceQueue) Push(unit *sentenceUnit) {
	q.mu.Lock()
	q.units = append(q.units, unit)
	q.broadcastLocked()
	q.mu.Unlock()
}

// Finish records that the producer will not push any more units.
func (q *sentenceQueue) Finish() {
	q.mu.Lock()
	if !q.producerDone {
		q.producerDone = true
		q.broadcastLocked()
	}
	q.mu.Unlock()
}

// Changed returns a channel closed by the next Push or Finish. Take it before
// checking Peek to avoid missing a wakeup.
func (q *sentenceQueue) Changed() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed
}

// Peek returns the next unit for consumer without advancing.
func (q *sentenceQueue) Peek(consumer queueConsumer) (*sentenceUnit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.cursors[consumer] - q.base
	if i >= len(q.units) {
		return nil, false
	}
	return q.units[i], true
}

// Advance moves consumer past its current unit.
func (q *sentenceQueue) Advance(consumer queueConsumer) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cursors[consumer]-q.base >= len(q.units) {
		return
	}
	q.cursors[consumer]++

	consumed := q.cursors[0]
	for _, cursor := range q.cursors[1:] {
		consumed = min(consumed, cursor)
	}
	if drop := consumed - q.base; drop > 0 {
		clear(q.units[:drop])
		q.units = q.units[drop:]
		q.base = consumed
	}
}

// Drained reports whether the producer finished and consumer has moved past
// every unit.
func (q *sentenceQueue) Drained(consumer queueConsumer) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.producerDone && q.cursors[consumer]-q.base >= len(q.units)
}

// Len returns the number of units not yet released by both consumers.
func (q *sentenceQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}

func (q *sentenceQueue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
