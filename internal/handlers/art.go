package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"jukebox/internal/artwork"
	"jukebox/internal/logging"
)

// GetArt returns the embedded cover art of a track as a JPEG thumbnail.
// GET /getart?key=<k>[&size=<px>]
func (h *Handlers) GetArt(w http.ResponseWriter, r *http.Request) {
	filename, ok := h.lookupKey(w, r)
	if !ok {
		return
	}

	size := artwork.DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSONError(w, "size must be an integer", http.StatusBadRequest)
			return
		}
		size = artwork.ClampSize(n)
	}

	data, err := artwork.Thumbnail(filename, size)
	if err != nil {
		if errors.Is(err, artwork.ErrNoArtwork) {
			http.Error(w, "No artwork", http.StatusNotFound)
			return
		}
		logging.Warn("Artwork failed for %s: %v", filename, err)
		http.Error(w, "Failed to read artwork", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write artwork: %v", err)
	}
}
