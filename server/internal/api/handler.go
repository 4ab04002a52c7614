package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/midistream/midistream/server/internal/device"
)

// maxBodyBytes bounds the POST /midi/select body.
const maxBodyBytes = 4 << 10

// Devices is the device session as seen by the control API.
type Devices interface {
	ListDevices() ([]string, error)
	Select(name string) error
	Current() string
}

// StatsFunc reports the stream-side numbers for GET /midi/status.
type StatsFunc func() (clients, pending int)

// Handler is the HTTP handler for the /midi control endpoints.
type Handler struct {
	devices Devices
	stats   StatsFunc
	log     *zap.Logger
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes. stats may be nil.
func New(devices Devices, stats StatsFunc, log *zap.Logger) http.Handler {
	if stats == nil {
		stats = func() (int, int) { return 0, 0 }
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{devices: devices, stats: stats, log: log, mux: http.NewServeMux()}

	h.mux.HandleFunc("/midi/devices", h.listDevices)
	h.mux.HandleFunc("/midi/select", h.selectDevice)
	h.mux.HandleFunc("/midi/status", h.status)
	h.mux.HandleFunc("/healthz", h.health)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// listDevices returns GET /midi/devices. It always succeeds.
func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	names, err := h.devices.ListDevices()
	if err != nil {
		h.log.Warn("device enumeration failed; reporting no devices", zap.Error(err))
	}
	if names == nil {
		names = []string{}
	}
	jsonResp(w, http.StatusOK, DevicesResponse{Devices: names})
}

// selectDevice handles POST /midi/select.
func (h *Handler) selectDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.devices.Select(req.Device)
	switch {
	case err == nil:
		jsonResp(w, http.StatusOK, SelectResponse{Message: "Connected to " + req.Device})
	case errors.Is(err, device.ErrDeviceNotFound):
		h.log.Info("select rejected: unknown device", zap.String("device", req.Device))
		jsonErr(w, http.StatusBadRequest, "Device not found")
	default:
		h.log.Error("select failed", zap.String("device", req.Device), zap.Error(err))
		jsonErr(w, http.StatusInternalServerError, "failed to open device")
	}
}

// status returns GET /midi/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	clients, pending := h.stats()
	jsonResp(w, http.StatusOK, StatusResponse{
		Device:  h.devices.Current(),
		Clients: clients,
		Pending: pending,
	})
}

// health returns GET /healthz.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
