package ws

import "sync"

// Subscriber is one registered stream destination.
type Subscriber interface {
	// ID identifies the subscriber in logs.
	ID() string
	// Offer hands frame to the subscriber without blocking. It reports false
	// if the subscriber is closed or cannot accept the frame.
	Offer(frame []byte) bool
	// Close disconnects the subscriber. It is idempotent.
	Close()
}

// Registry is the concurrency-safe set of connected subscribers.
type Registry struct {
	mu     sync.RWMutex
	subs   map[Subscriber]struct{}
	closed bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[Subscriber]struct{})}
}

// Register adds s. It reports false, leaving s untouched, once CloseAll has
// run.
func (r *Registry) Register(s Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.subs[s] = struct{}{}
	return true
}

// Unregister removes s and reports whether it was present.
func (r *Registry) Unregister(s Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[s]; !ok {
		return false
	}
	delete(r.subs, s)
	return true
}

// Snapshot returns the members at this instant. Later changes do not affect
// the returned slice.
func (r *Registry) Snapshot() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Subscriber, 0, len(r.subs))
	for s := range r.subs {
		out = append(out, s)
	}
	return out
}

// Len returns the number of members.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// CloseAll removes and closes every member and rejects later registrations.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	subs := r.subs
	r.subs = make(map[Subscriber]struct{})
	r.mu.Unlock()

	for s := range subs {
		s.Close()
	}
}
