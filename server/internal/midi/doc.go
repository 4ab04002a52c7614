// Package midi defines the MIDI Event carried through the bridge, its wire
// encodings, and the Driver collaborator that enumerates and opens hardware
// inputs.
//
// Decode(raw, device, at) turns the raw bytes of one channel message into an
// Event. Event.String() produces the text frame sent to stream clients:
//
//	note_on channel=0 note=60 velocity=100
//	control_change channel=1 control=7 value=90
//	raw data=f8
//
// NewDriver returns the rtmidi-backed driver when the binary is built with
// cgo, and an unavailable driver (empty enumeration, Open fails) otherwise.
package midi
