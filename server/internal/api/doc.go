// Package api implements the control endpoints of the MIDI stream server.
//
// New(devices, stats, log) returns an http.Handler that serves:
//
//	GET  /midi/devices : {"devices": [name, ...]}; empty list if none or on driver error
//	POST /midi/select  : body {"device": name}; {"message": "Connected to <name>"}
//	                    400 {"error": "Device not found"} if name is not enumerated
//	GET  /midi/status  : active device, connected clients, pending events
//	GET  /healthz      : {"status": "ok"}
//
// All responses are JSON. Wrong methods get 405. CORS wraps any handler with
// permissive or origin-listed cross-origin headers.
package api
