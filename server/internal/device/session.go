package device

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/midistream/midistream/server/internal/midi"
)

var (
	// ErrDeviceNotFound is returned by Select when the name is not among the
	// currently enumerated inputs.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrSessionClosed is returned by Select after Close.
	ErrSessionClosed = errors.New("device session closed")
)

// Sink receives decoded events. Enqueue must not block.
type Sink interface {
	Enqueue(midi.Event) error
}

// Observer is notified of event flow through the session.
type Observer interface {
	EventReceived()
	EventDropped()
}

type nopObserver struct{}

func (nopObserver) EventReceived() {}
func (nopObserver) EventDropped()  {}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithExclude hides inputs whose name contains any of patterns
// (case-insensitive), e.g. "Midi Through".
func WithExclude(patterns ...string) Option {
	return func(s *Session) { s.exclude = append(s.exclude, patterns...) }
}

// WithObserver sets the event flow observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.obs = o }
}

// WithClock overrides the timestamp source for decoded events.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the lifecycle wrapper around the one active input port.
type Session struct {
	driver  midi.Driver
	sink    Sink
	log     *zap.Logger
	obs     Observer
	exclude []string
	now     func() time.Time

	// mu serialises Select and Close.
	mu     sync.Mutex
	port   midi.Port
	name   string
	closed bool

	// genMu guards gen. Callbacks hold it in read mode while enqueueing.
	genMu sync.RWMutex
	gen   uint64
}

// New creates a Session with no active device.
func New(driver midi.Driver, sink Sink, opts ...Option) *Session {
	s := &Session{
		driver: driver,
		sink:   sink,
		log:    zap.NewNop(),
		obs:    nopObserver{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListDevices returns the names of the available inputs, minus excluded ones.
func (s *Session) ListDevices() ([]string, error) {
	names, err := s.driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s.excluded(n) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Select makes name the active input. If name is not currently enumerated the
// session is left untouched and ErrDeviceNotFound is returned. Otherwise the
// previous port (if any) is closed before the new one is opened; if opening
// fails the session has no active device.
func (s *Session) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	names, err := s.ListDevices()
	if err != nil {
		return err
	}
	if !slices.Contains(names, name) {
		return fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}

	s.closePortLocked()

	gen := s.nextGen()
	port, err := s.driver.Open(name, s.callback(name, gen))
	if err != nil {
		s.retire()
		s.log.Error("failed to open MIDI device", zap.String("device", name), zap.Error(err))
		return fmt.Errorf("open device %q: %w", name, err)
	}

	s.port = port
	s.name = name
	s.log.Info("connected to MIDI device", zap.String("device", name))
	return nil
}

// Current returns the active device name, or "" if none is open.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Close releases the active port and rejects further selections.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.closePortLocked()
	return nil
}

// closePortLocked must be called with s.mu held.
func (s *Session) closePortLocked() {
	if s.port == nil {
		return
	}
	s.retire()
	if err := s.port.Close(); err != nil {
		s.log.Warn("error closing MIDI device", zap.String("device", s.name), zap.Error(err))
	} else {
		s.log.Info("disconnected MIDI device", zap.String("device", s.name))
	}
	s.port = nil
	s.name = ""
}

// retire invalidates every callback issued so far. When it returns, no
// callback of an earlier generation is inside its enqueue.
func (s *Session) retire() {
	s.nextGen()
}

func (s *Session) nextGen() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gen++
	return s.gen
}

// callback is handed to the driver and runs on the driver's goroutine.
func (s *Session) callback(device string, gen uint64) func([]byte) {
	return func(raw []byte) {
		defer func() {
			if r := recover(); r != nil {
				s.obs.EventDropped()
				s.log.Error("recovered panic in MIDI callback",
					zap.String("device", device), zap.Any("panic", r))
			}
		}()

		ev := midi.Decode(raw, device, s.now())

		s.genMu.RLock()
		defer s.genMu.RUnlock()
		if s.gen != gen {
			s.obs.EventDropped()
			s.log.Debug("dropping event from superseded device",
				zap.String("device", device), zap.Stringer("event", ev))
			return
		}

		s.obs.EventReceived()
		if err := s.sink.Enqueue(ev); err != nil {
			s.obs.EventDropped()
			s.log.Warn("MIDI event dropped",
				zap.String("device", device), zap.Stringer("event", ev), zap.Error(err))
		}
	}
}

func (s *Session) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range s.exclude {
		if pat != "" && strings.Contains(lower, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
