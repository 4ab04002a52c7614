package midi

import "errors"

// ErrDriverUnavailable is returned by Open when no hardware driver could be
// initialised on this platform or build.
var ErrDriverUnavailable = errors.New("midi: driver unavailable")

// ErrPortNotFound is returned by Open when no input carries the given name.
var ErrPortNotFound = errors.New("midi: input port not found")

// Driver enumerates MIDI inputs and opens them. Implementations invoke the
// onMessage callback on their own goroutine, one call per complete message.
type Driver interface {
	// Ins returns the names of the currently available input ports.
	Ins() ([]string, error)
	// Open starts listening on the named input. onMessage must not retain raw.
	Open(name string, onMessage func(raw []byte)) (Port, error)
	// Close releases the driver. Ports must be closed first.
	Close() error
}

// Port is an open input. Close stops delivery and releases the handle.
type Port interface {
	Close() error
}

// Unavailable returns a Driver with no inputs whose Open always fails with
// ErrDriverUnavailable. The server falls back to it when the hardware driver
// cannot start, so the HTTP surface stays up.
func Unavailable() Driver { return unavailableDriver{} }

type unavailableDriver struct{}

func (unavailableDriver) Ins() ([]string, error) { return nil, nil }

func (unavailableDriver) Open(string, func([]byte)) (Port, error) {
	return nil, ErrDriverUnavailable
}

func (unavailableDriver) Close() error { return nil }
