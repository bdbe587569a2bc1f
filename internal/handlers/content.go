package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"jukebox/internal/decoder"
	"jukebox/internal/logging"
	"jukebox/internal/transcoder"
)

const contentType = "audio/ogg"

// GetContent streams a track as Ogg Vorbis.
// GET /getcontent?key=<k>[&buffered=true]
//
// Everything that can be checked without spawning a process is checked
// before headers are committed. Once an unbuffered stream has started a
// failure can only truncate the body.
func (h *Handlers) GetContent(w http.ResponseWriter, r *http.Request) {
	filename, ok := h.lookupKey(w, r)
	if !ok {
		return
	}

	if err := h.transcoder.Check(filename); err != nil {
		status := checkStatus(err)
		logging.Warn("Cannot stream %s: %v", filename, err)
		writeJSONError(w, err.Error(), status)
		return
	}

	buffered, _ := strconv.ParseBool(r.URL.Query().Get("buffered"))
	req := transcoder.Request{
		Filename:    filename,
		BitrateKbps: h.bitrate,
		Buffered:    buffered,
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if !buffered {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	logging.Debug("Streaming %s (buffered=%v, %d kbps)", filename, buffered, h.bitrate)

	if err := h.transcoder.Transcode(r.Context(), req, w); err != nil {
		logging.Error("Stream failed: %v", err)
		if buffered {
			w.Header().Del("Content-Length")
			writeJSONError(w, "failed to generate stream", http.StatusInternalServerError)
		}
	}
}

// checkStatus maps a pre-flight failure to an HTTP status.
func checkStatus(err error) int {
	switch {
	case errors.Is(err, decoder.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, decoder.ErrDecoderMissing), errors.Is(err, transcoder.ErrEncoderMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
