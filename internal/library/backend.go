package library

import (
	"fmt"

	"jukebox/internal/database"
	"jukebox/internal/decoder"
	"jukebox/internal/memory"
)

// Backend names accepted by NewBackend.
const (
	BackendDirectory = "dir"
	BackendPlaylist  = "playlist"
	BackendRhythmbox = "rhythmbox"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	RhythmboxDB string
	Decoders    *decoder.Selector
	Cache       *database.Database
	Workers     int
	Memory      *memory.Monitor
}

// NewBackend returns the backend named by opts.Backend.
func NewBackend(opts Options) (Backend, error) {
	switch opts.Backend {
	case BackendDirectory, "":
		decoders := opts.Decoders
		if decoders == nil {
			decoders = decoder.NewSelector(nil)
		}
		return &DirectoryBackend{
			Root:     opts.Path,
			Decoders: decoders,
			Cache:    opts.Cache,
			Workers:  opts.Workers,
			Memory:   opts.Memory,
		}, nil
	case BackendPlaylist:
		if opts.Path == "" {
			return nil, fmt.Errorf("the playlist backend requires --path")
		}
		return &PlaylistBackend{Path: opts.Path}, nil
	case BackendRhythmbox:
		db := opts.RhythmboxDB
		if db == "" {
			db = DefaultRhythmboxDB
		}
		return &RhythmboxBackend{DBPath: db}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want dir, playlist or rhythmbox)", ErrUnknownBackend, opts.Backend)
	}
}
