package handlers

import (
	"sync/atomic"
	"time"

	"jukebox/internal/library"
	"jukebox/internal/transcoder"
)

type Handlers struct {
	library    atomic.Pointer[library.Library]
	transcoder *transcoder.Transcoder
	bitrate    int
	started    time.Time
}

// New creates the handlers. The library may be attached later with
// SetLibrary; until then catalog routes answer 503.
func New(lib *library.Library, trans *transcoder.Transcoder, bitrateKbps int) *Handlers {
	h := &Handlers{
		transcoder: trans,
		bitrate:    bitrateKbps,
		started:    time.Now(),
	}
	if lib != nil {
		h.library.Store(lib)
	}
	return h
}

// SetLibrary publishes a loaded library.
func (h *Handlers) SetLibrary(lib *library.Library) {
	h.library.Store(lib)
}

// Library returns the current library or nil while loading.
func (h *Handlers) Library() *library.Library {
	return h.library.Load()
}
