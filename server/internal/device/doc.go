// Package device owns the single active MIDI input.
//
// Session.Select(name) validates name against the current enumeration, closes
// the previously open port, and opens the new one with a callback that decodes
// each message and hands it to the Sink (the bridge queue). Selections are
// serialised by one mutex.
//
// Every port is opened under a new generation number. Before the old port is
// closed the generation is bumped under a write lock that callbacks take in
// read mode around their enqueue, so once Select has moved on no message from
// the old port can reach the sink. Callbacks never block on the selection
// mutex and never panic into the driver.
package device
