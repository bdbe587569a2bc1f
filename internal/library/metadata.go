package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"jukebox/internal/filesystem"
	"jukebox/internal/logging"
)

// Metadata is the display information for one file.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	// Tagged is false when the file had no readable tags and every field
	// came from the path.
	Tagged bool
}

// ReadMetadata reads tags from path. A file that opens but has no
// recognizable tags still yields metadata derived from its path; only a
// file that cannot be opened is an error.
func ReadMetadata(path string) (Metadata, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Metadata{}, fmt.Errorf("%s is a directory", path)
	}

	m, err := tag.ReadFrom(f)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			logging.Debug("Unreadable tags in %s: %v", path, err)
		}
		return fromTags(path, nil), nil
	}
	return fromTags(path, m), nil
}

// fromTags builds metadata from m, which may be nil. The title is never
// empty so the client always has something to click.
func fromTags(path string, m tag.Metadata) Metadata {
	md := Metadata{
		Title: filepath.Base(path),
	}

	var artist, album string
	if m != nil {
		md.Tagged = true
		artist = cleanString(m.Artist())
		album = cleanString(m.Album())
		if title := cleanString(m.Title()); title != "" {
			md.Title = title
		}
	}

	md.Artist = artist
	md.Album = album
	if artist == "" && album == "" {
		md.Album = albumFromPath(path)
	}
	return md
}

// albumFromPath names an untagged file's album after the last two
// directories that contain it.
func albumFromPath(path string) string {
	var parts []string
	for _, p := range strings.Split(filepath.Dir(path), string(filepath.Separator)) {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return strings.Join(parts, string(filepath.Separator))
}

func cleanString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
