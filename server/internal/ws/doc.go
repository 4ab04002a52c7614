// Package ws implements the MIDI stream endpoint: the client registry and the
// broadcast loop that fans queued events out to every connected client.
//
// New(queue, opts...) creates a Hub.
// Hub.Run(ctx) is the single broadcast loop. It dequeues one event at a time,
// encodes it once, and offers the frame to a snapshot of the registry. It
// blocks until ctx is cancelled or the queue is closed, then closes every
// connection.
// Hub.ServeHTTP upgrades GET /midi/stream to a WebSocket and registers the
// connection until it closes. Inbound frames are read only to detect closure.
//
// Each client has a bounded outbox drained by its own write goroutine, so a
// slow socket never stalls the loop. A client whose outbox is full, or which
// has already closed, fails the offer: it is evicted and closed, and delivery
// to the remaining clients continues. There is no replay; a client sees only
// events dequeued after it registered.
package ws
