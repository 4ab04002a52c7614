package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/midistream/midistream/server/internal/bridge"
	"github.com/midistream/midistream/server/internal/midi"
)

const (
	// DefaultSendBuffer is the per-client outbox depth.
	DefaultSendBuffer = 64

	// DefaultPongWait is how long to wait for a pong before treating the
	// connection as dead.
	DefaultPongWait = 60 * time.Second

	// DefaultWriteTimeout is the deadline for a single socket write.
	DefaultWriteTimeout = 10 * time.Second
)

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("ws: broadcast loop already running")

// Source is the queue the broadcast loop drains.
type Source interface {
	Dequeue(ctx context.Context) (midi.Event, error)
}

// Observer is notified of delivery outcomes.
type Observer interface {
	EventBroadcast()
	SendFailed()
}

type nopObserver struct{}

func (nopObserver) EventBroadcast() {}
func (nopObserver) SendFailed()     {}

// Config holds per-connection settings.
type Config struct {
	// SendBuffer is how many encoded frames a client may have queued behind
	// the one being written. When it is full the frame is refused, which
	// counts as a failed send: the client is evicted and closed while other
	// clients keep receiving.
	SendBuffer   int
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *zap.Logger) Option { return func(h *Hub) { h.log = l } }

// WithEncoder sets the frame encoder. The default is the text encoding.
func WithEncoder(enc midi.EncodeFunc) Option { return func(h *Hub) { h.encode = enc } }

// WithObserver sets the delivery observer.
func WithObserver(o Observer) Option { return func(h *Hub) { h.obs = o } }

// WithSendBuffer sets the per-client outbox depth. A client whose outbox is
// full when an event is broadcast is evicted.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.cfg.SendBuffer = n
		}
	}
}

// WithPingPeriod sets the keep-alive ping interval. The pong deadline is
// derived from it.
func WithPingPeriod(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.cfg.PingPeriod = d
			h.cfg.PongWait = d * 10 / 9
		}
	}
}

// WithAllowedOrigins restricts the Origin header accepted on upgrade.
// "*" or an empty list accepts every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) { h.origins = origins }
}

// Hub owns the client registry and the broadcast loop.
type Hub struct {
	queue    Source
	registry *Registry
	encode   midi.EncodeFunc
	log      *zap.Logger
	obs      Observer
	cfg      Config
	origins  []string
	upgrader websocket.Upgrader
	running  atomic.Bool
	stopped  atomic.Bool
}

// New creates a Hub that drains q.
func New(q Source, opts ...Option) *Hub {
	h := &Hub{
		queue:    q,
		registry: NewRegistry(),
		log:      zap.NewNop(),
		obs:      nopObserver{},
		cfg: Config{
			SendBuffer:   DefaultSendBuffer,
			PingPeriod:   (DefaultPongWait * 9) / 10,
			PongWait:     DefaultPongWait,
			WriteTimeout: DefaultWriteTimeout,
		},
	}
	h.encode, _ = midi.NewEncoder(midi.FormatText)
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run is the broadcast loop. It returns nil when ctx is cancelled or the
// queue is closed, after closing every client connection.
func (h *Hub) Run(ctx context.Context) error {
	if !h.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		h.stopped.Store(true)
		h.registry.CloseAll()
	}()

	h.log.Info("broadcast loop started")
	for {
		ev, err := h.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, bridge.ErrClosed) || ctx.Err() != nil {
				h.log.Info("broadcast loop stopped")
				return nil
			}
			return fmt.Errorf("ws: dequeue: %w", err)
		}
		h.deliver(ev)
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.stopped.Load() {
		http.Error(w, "stream shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		h.log.Debug("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	c := newClient(conn, h.cfg)
	if !h.registry.Register(c) {
		// Run stopped between the check above and the upgrade.
		conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.cfg.WriteTimeout))
		conn.Close()
		return
	}
	h.log.Info("stream client connected",
		zap.String("client", c.id), zap.String("remote", r.RemoteAddr), zap.Int("clients", h.Count()))

	defer func() {
		h.registry.Unregister(c)
		c.Close()
		h.log.Info("stream client disconnected",
			zap.String("client", c.id), zap.Int("clients", h.Count()))
	}()

	go c.writePump()
	c.readPump()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	return h.registry.Len()
}

// Register adds s to the set of stream destinations. It reports false once
// Run has returned.
func (h *Hub) Register(s Subscriber) bool { return h.registry.Register(s) }

// Unregister removes s. Removing an absent subscriber is a no-op.
func (h *Hub) Unregister(s Subscriber) { h.registry.Unregister(s) }

// deliver offers ev to every subscriber registered at this instant.
func (h *Hub) deliver(ev midi.Event) {
	frame, err := h.encode(ev)
	if err != nil {
		h.log.Warn("failed to encode MIDI event", zap.Stringer("event", ev), zap.Error(err))
		return
	}
	defer h.obs.EventBroadcast()

	targets := h.registry.Snapshot()
	if len(targets) == 0 {
		h.log.Debug("no stream clients; event discarded", zap.Stringer("event", ev))
		return
	}

	for _, s := range targets {
		if s.Offer(frame) {
			continue
		}
		h.obs.SendFailed()
		h.log.Warn("send to stream client failed; evicting", zap.String("client", s.ID()))
		h.registry.Unregister(s)
		s.Close()
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 || slices.Contains(h.origins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.origins, origin)
}
