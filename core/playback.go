package orchestration

import "sync"

// playbackSequencer feeds the output device with the units of a sentence
// queue, strictly in order. Fill runs on the device callback and never
// blocks on decoding.
type playbackSequencer struct {
	queue   *sentenceQueue
	metrics *Metrics

	done     chan struct{}
	doneOnce sync.Once
}

func newPlaybackSequencer(queue *sentenceQueue, metrics *Metrics) *playbackSequencer {
	return &playbackSequencer{
		queue:   queue,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Fill copies the next decoded samples into out and returns how many were
// written. Units without data yet produce silence, finished units are skipped
// so one callback may span several sentences.
func (p *playbackSequencer) Fill(out []float32) int {
	n := 0
	for n < len(out) {
		unit, ok := p.queue.Peek(consumerPlayback)
		if !ok {
			if p.queue.Drained(consumerPlayback) {
				p.finish()
			}
			break
		}

		if read := unit.samples.Read(out[n:]); read > 0 {
			unit.markPlaybackStarted()
			n += read
			continue
		}

		if unit.samples.Exhausted() {
			unit.markPlaybackStarted()
			p.queue.Advance(consumerPlayback)
			continue
		}

		if unit.samples.DataReady() {
			p.metrics.playbackUnderrun()
		}
		break
	}
	return n
}

// Done is closed once every unit was played and no more will come.
func (p *playbackSequencer) Done() <-chan struct{} { return p.done }

func (p *playbackSequencer) finish() {
	p.doneOnce.Do(func() { close(p.done) })
}
