package stab

import "gocv.io/x/gocv"

// queueEntry pairs a buffered frame with its sequence index.
type queueEntry struct {
	frame gocv.Mat
	index int
}

// frameQueue is the bounded FIFO of decoded frames awaiting rendering.
// Its capacity equals the smoothing window, which makes it the mechanism
// that bounds output latency: a frame leaves the queue only after a full
// window of newer frames has been admitted, or the source has run dry.
type frameQueue struct {
	entries  []queueEntry
	capacity int
}

func newFrameQueue(capacity int) *frameQueue {
	return &frameQueue{capacity: capacity}
}

// Admit appends a frame. When the queue is full the oldest entry is
// evicted and returned; the caller owns the evicted frame.
func (q *frameQueue) Admit(frame gocv.Mat, index int) (queueEntry, bool) {
	var evicted queueEntry
	var ok bool
	if len(q.entries) >= q.capacity {
		evicted, ok = q.Pop()
	}
	q.entries = append(q.entries, queueEntry{frame: frame, index: index})
	return evicted, ok
}

// Pop removes and returns the oldest entry.
func (q *frameQueue) Pop() (queueEntry, bool) {
	if len(q.entries) == 0 {
		return queueEntry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

func (q *frameQueue) Len() int { return len(q.entries) }

// Close releases all frames still in the queue.
func (q *frameQueue) Close() {
	for i := range q.entries {
		q.entries[i].frame.Close()
	}
	q.entries = nil
}
