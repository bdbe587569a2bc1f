package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"jukebox/internal/database"
	"jukebox/internal/decoder"
	"jukebox/internal/filesystem"
	"jukebox/internal/logging"
	"jukebox/internal/memory"
	"jukebox/internal/metrics"
	"jukebox/internal/playlist"
	"jukebox/internal/workers"
)

// maxScanWorkers caps concurrent tag readers.
const maxScanWorkers = 16

// DirectoryBackend scans a directory tree for playable files. Playlist
// files found in the tree are exposed as playlists.
type DirectoryBackend struct {
	Root     string
	Decoders *decoder.Selector
	// Cache is optional. When set, tags are only read for new or modified
	// files and the cache is rewritten after every scan.
	Cache   *database.Database
	Workers int
	// Memory, when set, pauses tag reading under memory pressure.
	Memory *memory.Monitor
}

// Name implements Backend.
func (b *DirectoryBackend) Name() string {
	return "dir"
}

type scanned struct {
	path    string
	modTime time.Time
	meta    Metadata
	ok      bool
}

// Load implements Backend.
func (b *DirectoryBackend) Load(ctx context.Context) (*Catalog, error) {
	root, err := filepath.Abs(b.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", b.Root, err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("music directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("music directory %s is not a directory", root)
	}

	logging.Info("Scanning library in %s...", root)

	audio, lists, err := b.walk(ctx, root)
	if err != nil {
		return nil, err
	}

	cached := map[string]database.CachedTrack{}
	if b.Cache != nil {
		if cached, err = b.Cache.LoadTracks(ctx); err != nil {
			logging.Warn("Ignoring unreadable scan cache: %v", err)
			cached = map[string]database.CachedTrack{}
		}
	}

	results := make([]scanned, len(audio))
	n := b.Workers
	if n <= 0 {
		n = workers.ForIO(maxScanWorkers)
	}
	err = workers.ForEach(ctx, n, len(audio), func(i int) {
		if b.Memory.Wait(ctx) != nil {
			return
		}
		results[i] = scanFile(audio[i], cached)
	})
	if err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(results))
	toCache := make([]database.CachedTrack, 0, len(results))
	for _, r := range results {
		if !r.ok {
			continue
		}
		entries = append(entries, entry{path: r.path, meta: r.meta})
		toCache = append(toCache, database.CachedTrack{
			Path:    r.path,
			ModTime: r.modTime,
			Title:   r.meta.Title,
			Artist:  r.meta.Artist,
			Album:   r.meta.Album,
		})
	}

	if b.Cache != nil {
		deleted, err := b.Cache.SyncTracks(ctx, toCache)
		if err != nil {
			logging.Warn("Failed to update scan cache: %v", err)
		} else {
			logging.Debug("Scan cache updated: %d entries, %d removed", len(toCache), deleted)
			if err := b.Cache.SetLastScan(ctx, time.Now(), root); err != nil {
				logging.Warn("Failed to record scan time: %v", err)
			}
		}
	}

	var playlists []namedPaths
	for _, path := range lists {
		pl, err := playlist.Parse(path)
		if err != nil {
			logging.Warn("Skipping playlist %s: %v", path, err)
			continue
		}
		playlists = append(playlists, namedPaths{name: pl.Name, paths: pl.Paths()})
	}

	return newCatalog(entries, playlists), nil
}

// walk returns the decodable files and the playlist files under root, both
// in natural order. Unreadable directories are logged and skipped.
func (b *DirectoryBackend) walk(ctx context.Context, root string) ([]string, []string, error) {
	var audio, lists []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Cannot read %s: %v", path, err)
			metrics.LibraryScanErrors.Inc()
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		switch {
		case b.Decoders.HasDecoder(path):
			audio = append(audio, path)
		case playlist.IsPlaylist(path):
			lists = append(lists, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.SliceStable(audio, func(i, j int) bool { return NaturalLess(audio[i], audio[j]) })
	sort.SliceStable(lists, func(i, j int) bool { return NaturalLess(lists[i], lists[j]) })
	return audio, lists, nil
}

// scanFile returns metadata for path, preferring a fresh cache entry.
func scanFile(path string, cached map[string]database.CachedTrack) scanned {
	info, err := filesystem.Stat(path)
	if err != nil {
		logging.Warn("Skipping %s: %v", path, err)
		metrics.LibraryScanErrors.Inc()
		return scanned{path: path}
	}

	if c, ok := cached[path]; ok && c.Fresh(info.ModTime()) {
		metrics.LibraryScanFilesTotal.WithLabelValues("cache").Inc()
		return scanned{
			path:    path,
			modTime: c.ModTime,
			meta:    Metadata{Title: c.Title, Artist: c.Artist, Album: c.Album, Tagged: true},
			ok:      true,
		}
	}

	meta, err := ReadMetadata(path)
	if err != nil {
		logging.Warn("Skipping %s: %v", path, err)
		metrics.LibraryScanErrors.Inc()
		return scanned{path: path}
	}

	source := "tags"
	if !meta.Tagged {
		source = "fallback"
	}
	metrics.LibraryScanFilesTotal.WithLabelValues(source).Inc()

	return scanned{path: path, modTime: info.ModTime(), meta: meta, ok: true}
}
