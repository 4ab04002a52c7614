package midi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// fakeIn is a drivers.In that records how it was asked to listen.
type fakeIn struct {
	open    bool
	conf    drivers.ListenConfig
	onMsg   func([]byte, int32)
	stopped bool
}

func (p *fakeIn) Open() error             { p.open = true; return nil }
func (p *fakeIn) Close() error            { p.open = false; return nil }
func (p *fakeIn) IsOpen() bool            { return p.open }
func (p *fakeIn) Number() int             { return 0 }
func (p *fakeIn) String() string          { return "Keyboard A" }
func (p *fakeIn) Underlying() interface{} { return nil }

func (p *fakeIn) Listen(onMsg func([]byte, int32), conf drivers.ListenConfig) (func(), error) {
	p.onMsg = onMsg
	p.conf = conf
	return func() { p.stopped = true }, nil
}

func startListening(t *testing.T) (*fakeIn, *[][]byte, func()) {
	t.Helper()
	in := &fakeIn{}
	var got [][]byte
	stop, err := listen(in, in.String(), func(raw []byte) {
		got = append(got, append([]byte(nil), raw...))
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, in.onMsg)
	return in, &got, stop
}

func TestListen_PassesSystemMessages(t *testing.T) {
	in, _, _ := startListening(t)

	assert.True(t, in.open, "port is opened if needed")
	assert.True(t, in.conf.SysEx, "sysex must not be filtered")
	assert.True(t, in.conf.TimeCode, "time code and clock must not be filtered")
	assert.False(t, in.conf.ActiveSense, "active sensing stays filtered")
	assert.NotNil(t, in.conf.OnErr)
}

func TestListen_DeliversSysExAndClock(t *testing.T) {
	in, got, _ := startListening(t)

	in.onMsg([]byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7}, 0)
	in.onMsg([]byte{0xF8}, 1)
	in.onMsg([]byte{0x90, 60, 100}, 2)

	require.Len(t, *got, 3)
	assert.Equal(t, "raw data=f07e7f0601f7", Decode((*got)[0], "Keyboard A", at).String())
	assert.Equal(t, "raw data=f8", Decode((*got)[1], "Keyboard A", at).String())
	assert.Equal(t, "note_on channel=0 note=60 velocity=100", Decode((*got)[2], "Keyboard A", at).String())
}

func TestListen_SkipsEmptyMessages(t *testing.T) {
	in, got, _ := startListening(t)

	// An unpaired end-of-exclusive byte carries no message.
	in.onMsg([]byte{0xF7}, 0)
	assert.Empty(t, *got)
}

func TestListen_StopAndErrors(t *testing.T) {
	in, _, stop := startListening(t)

	assert.NotPanics(t, func() { in.conf.OnErr(errors.New("buffer overflow")) })
	stop()
	assert.True(t, in.stopped)
}
