//go:build !cgo

package midi

import "go.uber.org/zap"

// NewDriver reports ErrDriverUnavailable: the rtmidi backend needs cgo.
func NewDriver(log *zap.Logger) (Driver, error) {
	log.Warn("built without cgo; MIDI hardware access disabled")
	return nil, ErrDriverUnavailable
}
