package api

import (
	"net/http"
	"time"

	"github.com/snarg/ttscribe/internal/transcribe"
)

const serviceName = "ttscribe"

// ModelReporter reports the currently held speech model instance, if any.
// Implemented by the transcribe adapter.
type ModelReporter interface {
	Loaded() (transcribe.ModelSpec, bool)
}

// ModelStatus is the loaded-model portion of the health body.
type ModelStatus struct {
	Loaded      bool   `json:"loaded"`
	Model       string `json:"model,omitempty"`
	Device      string `json:"device,omitempty"`
	ComputeType string `json:"compute_type,omitempty"`
}

// StatusResponse is the body for the root and health endpoints. Model is
// reported on the health endpoint only.
type StatusResponse struct {
	Status        string       `json:"status"`
	Service       string       `json:"service"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Model         *ModelStatus `json:"model,omitempty"`
	Timestamp     string       `json:"timestamp"`
}

type StatusHandler struct {
	version   string
	startTime time.Time
	model     ModelReporter
}

func NewStatusHandler(version string, startTime time.Time, model ModelReporter) *StatusHandler {
	return &StatusHandler{version: version, startTime: startTime, model: model}
}

func (h *StatusHandler) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.response("online"))
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.response("healthy")
	if h.model != nil {
		ms := &ModelStatus{}
		if spec, ok := h.model.Loaded(); ok {
			ms.Loaded = true
			ms.Model = spec.Model
			ms.Device = spec.Device
			ms.ComputeType = spec.ComputeType
		}
		resp.Model = ms
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *StatusHandler) response(status string) StatusResponse {
	return StatusResponse{
		Status:        status,
		Service:       serviceName,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     Now(),
	}
}
