package handlers

import (
	"net/http"

	"jukebox/internal/library"
	"jukebox/internal/logging"
)

// GetLibrary returns every track as a JSON array.
// GET /getlibrary
func (h *Handlers) GetLibrary(w http.ResponseWriter, _ *http.Request) {
	lib := h.requireLibrary(w)
	if lib == nil {
		return
	}

	tracks := lib.Tracks()
	if tracks == nil {
		tracks = []library.Track{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, tracks)
}

// GetPlaylists returns every playlist as a JSON array.
// GET /getplaylists
func (h *Handlers) GetPlaylists(w http.ResponseWriter, _ *http.Request) {
	lib := h.requireLibrary(w)
	if lib == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, lib.Playlists())
}

// requireLibrary writes a 503 and returns nil while the library is loading.
func (h *Handlers) requireLibrary(w http.ResponseWriter) *library.Library {
	lib := h.Library()
	if lib == nil {
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, "library is still loading", http.StatusServiceUnavailable)
	}
	return lib
}

// lookupKey resolves the key query parameter, writing 400 or 404 itself
// when it cannot.
func (h *Handlers) lookupKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	lib := h.requireLibrary(w)
	if lib == nil {
		return "", false
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSONError(w, "missing key parameter", http.StatusBadRequest)
		return "", false
	}
	if !isDecimal(key) {
		writeJSONError(w, "key must be a non-negative integer", http.StatusBadRequest)
		return "", false
	}

	filename, err := lib.Filename(key)
	if err != nil {
		logging.Debug("Lookup failed for key %s: %v", key, err)
		writeJSONError(w, "no such key", http.StatusNotFound)
		return "", false
	}
	return filename, true
}

func isDecimal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
