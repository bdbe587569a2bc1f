package library

import (
	"context"
	"fmt"

	"jukebox/internal/logging"
	"jukebox/internal/metrics"
	"jukebox/internal/playlist"
)

// PlaylistBackend serves the entries of a single playlist file. The
// playlist itself is also exposed, under the file's name.
type PlaylistBackend struct {
	Path string
}

// Name implements Backend.
func (b *PlaylistBackend) Name() string {
	return "playlist"
}

// Load implements Backend.
func (b *PlaylistBackend) Load(ctx context.Context) (*Catalog, error) {
	pl, err := playlist.Parse(b.Path)
	if err != nil {
		return nil, fmt.Errorf("could not read playlist %s (try --backend=dir instead): %w", b.Path, err)
	}

	entries := make([]entry, 0, len(pl.Items))
	for _, item := range pl.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, err := ReadMetadata(item.Path)
		if err != nil {
			logging.Warn("Skipping playlist entry %s: %v", item.OrigPath, err)
			metrics.LibraryScanErrors.Inc()
			continue
		}
		source := "tags"
		if !meta.Tagged {
			source = "fallback"
		}
		metrics.LibraryScanFilesTotal.WithLabelValues(source).Inc()
		entries = append(entries, entry{path: item.Path, meta: meta})
	}

	c := newCatalog(entries, nil)

	items := make([]int, len(c.Tracks))
	for i := range c.Tracks {
		items[i] = i
	}
	c.Playlists = []Playlist{{Name: pl.Name, Items: items}}

	return c, nil
}
