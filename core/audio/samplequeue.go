package audio

import "sync"

// SampleSource produces mono float32 samples for an output device. Fill is
// called from the device callback, it must not block and returns the number
// of samples written. The remainder of out is left for the caller to silence.
type SampleSource interface {
	Fill(out []float32) int
}

// SampleQueue is a FIFO of decoded samples shared between one decoder and one
// player.
type SampleQueue struct {
	mu      sync.Mutex
	samples []float32
	read    int

	dataReady bool
	endOfData bool
	total     int
}

func NewSampleQueue() *SampleQueue {
	return &SampleQueue{}
}

func (q *SampleQueue) Push(samples []float32) {
	if len(samples) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.read > 0 && q.read >= len(q.samples)/2 {
		q.samples = append(q.samples[:0], q.samples[q.read:]...)
		q.read = 0
	}
	q.samples = append(q.samples, samples...)
	q.total += len(samples)
	q.dataReady = true
}

// Read copies up to len(out) samples and returns how many were copied.
func (q *SampleQueue) Read(out []float32) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := copy(out, q.samples[q.read:])
	q.read += n
	return n
}

// SignalEndOfData marks that no more samples will be pushed.
func (q *SampleQueue) SignalEndOfData() {
	q.mu.Lock()
	q.endOfData = true
	q.mu.Unlock()
}

func (q *SampleQueue) DataReady() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dataReady
}

// Exhausted reports whether every pushed sample was read and no more will
// arrive.
func (q *SampleQueue) Exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.endOfData && q.read == len(q.samples)
}

// Total returns the number of samples pushed over the lifetime of the queue.
func (q *SampleQueue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}
