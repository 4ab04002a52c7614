package midi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Message type names used in the text encoding.
const (
	TypeNoteOn        = "note_on"
	TypeNoteOff       = "note_off"
	TypeControlChange = "control_change"
	TypeProgramChange = "program_change"
	TypePitchWheel    = "pitchwheel"
	TypeAfterTouch    = "aftertouch"
	TypePolyTouch     = "polytouch"
	TypeRaw           = "raw"
)

// Field is one named value of a decoded message, e.g. note=60.
type Field struct {
	Key   string
	Value int
}

// Event is one decoded MIDI message. It is immutable once produced and may be
// shared by any number of readers.
type Event struct {
	// Device is the name of the input the message arrived on.
	Device string
	// Type is one of the Type* constants.
	Type string
	// Fields holds the message values in encoding order.
	Fields []Field
	// Raw is a private copy of the bytes the driver delivered.
	Raw []byte
	// Time is when the session received the message.
	Time time.Time
}

// Decode builds an Event from the raw bytes of a single MIDI message. raw is
// copied, so the driver may reuse its buffer after Decode returns.
func Decode(raw []byte, device string, at time.Time) Event {
	data := make([]byte, len(raw))
	copy(data, raw)

	ev := Event{Device: device, Raw: data, Time: at}
	msg := gomidi.Message(data)

	var ch, a, b uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteOn(&ch, &a, &b):
		ev.Type = TypeNoteOn
		ev.Fields = []Field{{"channel", int(ch)}, {"note", int(a)}, {"velocity", int(b)}}
	case msg.GetNoteOff(&ch, &a, &b):
		ev.Type = TypeNoteOff
		ev.Fields = []Field{{"channel", int(ch)}, {"note", int(a)}, {"velocity", int(b)}}
	case msg.GetControlChange(&ch, &a, &b):
		ev.Type = TypeControlChange
		ev.Fields = []Field{{"channel", int(ch)}, {"control", int(a)}, {"value", int(b)}}
	case msg.GetProgramChange(&ch, &a):
		ev.Type = TypeProgramChange
		ev.Fields = []Field{{"channel", int(ch)}, {"program", int(a)}}
	case msg.GetPitchBend(&ch, &rel, &abs):
		ev.Type = TypePitchWheel
		ev.Fields = []Field{{"channel", int(ch)}, {"pitch", int(rel)}}
	case msg.GetAfterTouch(&ch, &a):
		ev.Type = TypeAfterTouch
		ev.Fields = []Field{{"channel", int(ch)}, {"value", int(a)}}
	case msg.GetPolyAfterTouch(&ch, &a, &b):
		ev.Type = TypePolyTouch
		ev.Fields = []Field{{"channel", int(ch)}, {"note", int(a)}, {"value", int(b)}}
	default:
		ev.Type = TypeRaw
	}
	return ev
}

// Get returns the value of the named field and whether it is present.
func (e Event) Get(key string) (int, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return 0, false
}

// String returns the text encoding: the type followed by key=value pairs.
// Messages with no typed decoding render as "raw data=<hex>".
func (e Event) String() string {
	var sb strings.Builder
	sb.WriteString(e.Type)
	if e.Type == TypeRaw {
		sb.WriteString(" data=")
		sb.WriteString(hex.EncodeToString(e.Raw))
		return sb.String()
	}
	for _, f := range e.Fields {
		sb.WriteByte(' ')
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(strconv.Itoa(f.Value))
	}
	return sb.String()
}

// MarshalJSON flattens the event into a single object:
//
//	{"device":"Keyboard A","type":"note_on","channel":0,"note":60,
//	 "velocity":100,"text":"note_on channel=0 note=60 velocity=100",
//	 "time":"2024-01-01T00:00:00Z"}
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+4)
	for _, f := range e.Fields {
		m[f.Key] = f.Value
	}
	m["device"] = e.Device
	m["type"] = e.Type
	m["text"] = e.String()
	m["time"] = e.Time.UTC().Format(time.RFC3339Nano)
	return json.Marshal(m)
}

// Encoding formats accepted by NewEncoder.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// EncodeFunc renders an event as one stream frame.
type EncodeFunc func(Event) ([]byte, error)

// NewEncoder returns the frame encoder for format ("text" or "json").
func NewEncoder(format string) (EncodeFunc, error) {
	switch format {
	case FormatText, "":
		return func(e Event) ([]byte, error) { return []byte(e.String()), nil }, nil
	case FormatJSON:
		return func(e Event) ([]byte, error) { return json.Marshal(e) }, nil
	default:
		return nil, fmt.Errorf("midi: unknown stream format %q", format)
	}
}
