package midi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDecode_TextEncoding(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want string
	}{
		{"note on", []byte{0x90, 60, 100}, "note_on channel=0 note=60 velocity=100"},
		{"note on channel 3", []byte{0x93, 64, 1}, "note_on channel=3 note=64 velocity=1"},
		{"note off", []byte{0x80, 60, 64}, "note_off channel=0 note=60 velocity=64"},
		{"control change", []byte{0xB1, 7, 90}, "control_change channel=1 control=7 value=90"},
		{"program change", []byte{0xC2, 5}, "program_change channel=2 program=5"},
		{"pitch wheel centre", []byte{0xE0, 0x00, 0x40}, "pitchwheel channel=0 pitch=0"},
		{"channel pressure", []byte{0xD0, 64}, "aftertouch channel=0 value=64"},
		{"poly pressure", []byte{0xA0, 60, 32}, "polytouch channel=0 note=60 value=32"},
		{"clock", []byte{0xF8}, "raw data=f8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := Decode(tc.raw, "Keyboard A", at)
			assert.Equal(t, tc.want, ev.String())
			assert.Equal(t, "Keyboard A", ev.Device)
			assert.Equal(t, at, ev.Time)
		})
	}
}

func TestDecode_CopiesRaw(t *testing.T) {
	buf := []byte{0x90, 60, 100}
	ev := Decode(buf, "dev", at)
	buf[1] = 0

	assert.Equal(t, []byte{0x90, 60, 100}, ev.Raw)
	note, ok := ev.Get("note")
	require.True(t, ok)
	assert.Equal(t, 60, note)
}

func TestEvent_GetMissing(t *testing.T) {
	ev := Decode([]byte{0xC0, 1}, "dev", at)
	_, ok := ev.Get("velocity")
	assert.False(t, ok)
}

func TestNewEncoder_JSON(t *testing.T) {
	enc, err := NewEncoder(FormatJSON)
	require.NoError(t, err)

	frame, err := enc(Decode([]byte{0x90, 60, 100}, "Keyboard A", at))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(frame, &m))
	assert.Equal(t, "Keyboard A", m["device"])
	assert.Equal(t, "note_on", m["type"])
	assert.Equal(t, float64(60), m["note"])
	assert.Equal(t, float64(100), m["velocity"])
	assert.Equal(t, "note_on channel=0 note=60 velocity=100", m["text"])
	assert.Equal(t, "2024-03-01T12:00:00Z", m["time"])
}

func TestNewEncoder_TextDefault(t *testing.T) {
	enc, err := NewEncoder("")
	require.NoError(t, err)
	frame, err := enc(Decode([]byte{0x80, 61, 0}, "dev", at))
	require.NoError(t, err)
	assert.Equal(t, "note_off channel=0 note=61 velocity=0", string(frame))
}

func TestNewEncoder_Unknown(t *testing.T) {
	_, err := NewEncoder("msgpack")
	assert.Error(t, err)
}

func TestUnavailableDriver(t *testing.T) {
	d := Unavailable()
	names, err := d.Ins()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = d.Open("anything", func([]byte) {})
	assert.ErrorIs(t, err, ErrDriverUnavailable)
	assert.NoError(t, d.Close())
}
