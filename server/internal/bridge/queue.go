package bridge

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Enqueue after Close, and by Dequeue once a closed
// queue has been drained.
var ErrClosed = errors.New("bridge: queue closed")

// compactThreshold is the number of consumed slots tolerated at the head of
// the backing slice before it is compacted.
const compactThreshold = 1024

// Queue is a FIFO safe for concurrent producers and a single consumer.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int
	closed  bool
	max     int
	dropped uint64

	// notify holds at most one wake-up token for the consumer.
	notify chan struct{}
}

// New returns an empty queue. maxPending <= 0 means unbounded.
func New[T any](maxPending int) *Queue[T] {
	if maxPending < 0 {
		maxPending = 0
	}
	return &Queue[T]{
		max:    maxPending,
		notify: make(chan struct{}, 1),
	}
}

// Enqueue appends v. It never blocks. On a bounded queue at capacity the
// oldest pending item is discarded to make room.
func (q *Queue[T]) Enqueue(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if q.max > 0 && len(q.items)-q.head >= q.max {
		var zero T
		q.items[q.head] = zero
		q.head++
		q.dropped++
		q.compact()
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Dequeue removes and returns the oldest item, blocking while the queue is
// empty. Items enqueued before Close are still returned; after that Dequeue
// reports ErrClosed. Cancelling ctx returns ctx.Err().
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > q.head {
			v := q.items[q.head]
			q.items[q.head] = zero
			q.head++
			q.compact()
			q.mu.Unlock()
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, ErrClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close stops the queue from accepting items and wakes the consumer.
// It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Dropped returns how many items were discarded by the drop-oldest policy.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// compact must be called with q.mu held.
func (q *Queue[T]) compact() {
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}
