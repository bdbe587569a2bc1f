package handlers

import (
	"net/http"
	"runtime"
	"time"

	"jukebox/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Ready            bool   `json:"ready"`
	Version          string `json:"version"`
	Uptime           string `json:"uptime"`
	Backend          string `json:"backend,omitempty"`
	LoadedAt         string `json:"loadedAt,omitempty"`
	Tracks           int    `json:"tracks"`
	Playlists        int    `json:"playlists"`
	ActiveStreams    int    `json:"activeStreams"`
	EncoderAvailable bool   `json:"encoderAvailable"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. A missing encoder
// reports "degraded" because no track can be played.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	lib := h.Library()

	response := HealthResponse{
		Ready:            lib != nil,
		Version:          startup.Version,
		Uptime:           time.Since(h.started).Round(time.Second).String(),
		ActiveStreams:    h.transcoder.ActiveSessions(),
		EncoderAvailable: h.transcoder.EncoderAvailable(),
		GoVersion:        runtime.Version(),
		NumCPU:           runtime.NumCPU(),
		NumGoroutine:     runtime.NumGoroutine(),
	}

	switch {
	case lib == nil:
		response.Status = statusStarting
	case !response.EncoderAvailable:
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	if lib != nil {
		response.Backend = lib.Backend()
		response.LoadedAt = lib.LoadedAt().Format(time.RFC3339)
		response.Tracks = lib.Len()
		response.Playlists = len(lib.Playlists())
	}

	w.Header().Set("Content-Type", "application/json")
	if lib == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the library has been loaded
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.Library() != nil {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
