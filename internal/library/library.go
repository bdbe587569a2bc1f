package library

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"jukebox/internal/logging"
	"jukebox/internal/metrics"
)

var (
	// ErrKeyNotFound is returned for keys that are malformed or not in the
	// catalog.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnknownBackend is returned by NewBackend for an unrecognized name.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Track is one playable file as presented to clients.
type Track struct {
	Key    int    `json:"key"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// Playlist is an ordered list of track keys.
type Playlist struct {
	Name  string `json:"name"`
	Items []int  `json:"items"`
}

// Backend produces a catalog from some music source.
type Backend interface {
	Name() string
	Load(ctx context.Context) (*Catalog, error)
}

// Catalog is an immutable snapshot of a library. Keys run from 0 to
// len(Tracks)-1 and index both Tracks and the filename table.
type Catalog struct {
	Tracks    []Track
	Playlists []Playlist
	files     []string
}

// entry is a track before key assignment.
type entry struct {
	path string
	meta Metadata
}

// namedPaths is a playlist before its paths are mapped to keys.
type namedPaths struct {
	name  string
	paths []string
}

// newCatalog numbers entries consecutively from 0 in the order given and
// maps each playlist path to the first track with that filename. Paths not
// in the library are dropped.
func newCatalog(entries []entry, playlists []namedPaths) *Catalog {
	c := &Catalog{
		Tracks:    make([]Track, len(entries)),
		Playlists: make([]Playlist, 0, len(playlists)),
		files:     make([]string, len(entries)),
	}

	byPath := make(map[string]int, len(entries))
	for i, e := range entries {
		c.Tracks[i] = Track{Key: i, Title: e.meta.Title, Artist: e.meta.Artist, Album: e.meta.Album}
		c.files[i] = e.path
		if _, seen := byPath[e.path]; !seen {
			byPath[e.path] = i
		}
	}

	for _, pl := range playlists {
		items := make([]int, 0, len(pl.paths))
		for _, p := range pl.paths {
			if key, ok := byPath[p]; ok {
				items = append(items, key)
			} else {
				logging.Debug("Playlist %q: dropping %s (not in library)", pl.name, p)
			}
		}
		c.Playlists = append(c.Playlists, Playlist{Name: pl.name, Items: items})
	}

	return c
}

// Library serves lookups against a loaded catalog.
type Library struct {
	catalog *Catalog
	backend string
	loaded  time.Time
}

// Load runs backend once and wraps the resulting catalog.
func Load(ctx context.Context, backend Backend) (*Library, error) {
	start := time.Now()
	catalog, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	metrics.LibraryScanDuration.Set(duration.Seconds())
	metrics.LibraryTracks.Set(float64(len(catalog.Tracks)))
	metrics.LibraryPlaylists.Set(float64(len(catalog.Playlists)))

	logging.Info("Loaded %d tracks and %d playlists from %s backend in %v",
		len(catalog.Tracks), len(catalog.Playlists), backend.Name(), duration)

	return &Library{catalog: catalog, backend: backend.Name(), loaded: time.Now()}, nil
}

// New wraps an existing catalog.
func New(catalog *Catalog) *Library {
	return &Library{catalog: catalog, loaded: time.Now()}
}

// Filename returns the source file for a decimal key.
func (l *Library) Filename(key string) (string, error) {
	k, err := strconv.Atoi(key)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if k < 0 || k >= len(l.catalog.files) {
		return "", fmt.Errorf("%w: %d", ErrKeyNotFound, k)
	}
	return l.catalog.files[k], nil
}

// Tracks returns every track in display order.
func (l *Library) Tracks() []Track {
	return l.catalog.Tracks
}

// Playlists returns every playlist. It is never nil.
func (l *Library) Playlists() []Playlist {
	if l.catalog.Playlists == nil {
		return []Playlist{}
	}
	return l.catalog.Playlists
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	return len(l.catalog.Tracks)
}

// Backend names the backend that produced the catalog.
func (l *Library) Backend() string {
	return l.backend
}

// LoadedAt returns when the catalog was loaded.
func (l *Library) LoadedAt() time.Time {
	return l.loaded
}
