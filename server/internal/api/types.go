package api

// DevicesResponse is the payload for GET /midi/devices.
type DevicesResponse struct {
	Devices []string `json:"devices"`
}

// SelectRequest is the body of POST /midi/select.
type SelectRequest struct {
	Device string `json:"device"`
}

// SelectResponse is the success payload for POST /midi/select.
type SelectResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the payload for GET /midi/status.
type StatusResponse struct {
	Device  string `json:"device"`
	Clients int    `json:"clients"`
	Pending int    `json:"pending"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
