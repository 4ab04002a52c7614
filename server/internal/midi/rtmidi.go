//go:build cgo

package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
)

// rtmidiDriver adapts the gomidi rtmidi driver to Driver.
type rtmidiDriver struct {
	drv *rtmididrv.Driver
	log *zap.Logger
}

// NewDriver initialises the rtmidi backend.
func NewDriver(log *zap.Logger) (Driver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &rtmidiDriver{drv: drv, log: log}, nil
}

func (d *rtmidiDriver) Ins() ([]string, error) {
	ins, err := d.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

func (d *rtmidiDriver) Open(name string, onMessage func(raw []byte)) (Port, error) {
	ins, err := d.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrPortNotFound, name)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := listen(found, name, onMessage, d.log)
	if err != nil {
		_ = found.Close()
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}
	return &rtmidiPort{in: found, stop: stop}, nil
}

func (d *rtmidiDriver) Close() error {
	return d.drv.Close()
}

type rtmidiPort struct {
	in   drivers.In
	stop func()
}

func (p *rtmidiPort) Close() error {
	p.stop()
	return p.in.Close()
}
