// Package bridge implements the hand-off between the MIDI driver's callback
// goroutine and the broadcast loop.
//
// Queue is an ordered FIFO. Enqueue never blocks and may be called from any
// goroutine; Dequeue blocks the single consumer until an item is available,
// the queue is closed, or its context is cancelled. By default the queue is
// unbounded. New(n) with n > 0 caps it at n pending items and discards the
// oldest item on overflow.
package bridge
