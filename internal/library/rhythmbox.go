package library

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"jukebox/internal/logging"
	"jukebox/internal/playlist"
)

// DefaultRhythmboxDB is where Rhythmbox keeps its library.
const DefaultRhythmboxDB = "~/.local/share/rhythmbox/rhythmdb.xml"

// RhythmboxBackend serves the songs in a Rhythmbox library database.
// Static playlists are read from playlists.xml next to the database.
type RhythmboxBackend struct {
	DBPath string
}

// Name implements Backend.
func (b *RhythmboxBackend) Name() string {
	return "rhythmbox"
}

type rhythmboxEntry struct {
	Title    string `xml:"title"`
	Artist   string `xml:"artist"`
	Album    string `xml:"album"`
	Location string `xml:"location"`
}

// Load implements Backend.
func (b *RhythmboxBackend) Load(ctx context.Context) (*Catalog, error) {
	path := ExpandHome(b.DBPath)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no Rhythmbox DB was found at %s (consider using --path to read from a directory instead): %w", path, err)
		}
		return nil, fmt.Errorf("couldn't read from Rhythmbox DB %s: %w", path, err)
	}
	defer f.Close()

	entries, err := readRhythmDB(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Rhythmbox DB %s: %w", path, err)
	}

	var playlists []namedPaths
	listsPath := filepath.Join(filepath.Dir(path), "playlists.xml")
	if pls, err := playlist.ParseRhythmbox(listsPath); err == nil {
		for _, pl := range pls {
			playlists = append(playlists, namedPaths{name: pl.Name, paths: pl.Paths()})
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Ignoring Rhythmbox playlists: %v", err)
	}

	return newCatalog(entries, playlists), nil
}

// readRhythmDB streams song entries out of rhythmdb.xml, keeping those with
// file:// locations, sorted by filename.
func readRhythmDB(ctx context.Context, r io.Reader) ([]entry, error) {
	dec := xml.NewDecoder(r)

	var entries []entry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "entry" || attr(start, "type") != "song" {
			continue
		}

		var e rhythmboxEntry
		if err := dec.DecodeElement(&e, &start); err != nil {
			return nil, err
		}

		if !strings.HasPrefix(e.Location, "file://") {
			continue
		}
		path, err := url.PathUnescape(strings.TrimPrefix(e.Location, "file://"))
		if err != nil {
			logging.Warn("Skipping Rhythmbox entry with bad location %q: %v", e.Location, err)
			continue
		}

		entries = append(entries, entry{
			path: path,
			meta: Metadata{Title: e.Title, Artist: e.Artist, Album: e.Album, Tagged: true},
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return NaturalLess(entries[i].path, entries[j].path)
	})
	return entries, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
