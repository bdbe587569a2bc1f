package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"jukebox/internal/filesystem"
	"jukebox/internal/logging"
)

// ErrUnsupportedPlaylist is returned for playlist files with an unknown
// extension.
var ErrUnsupportedPlaylist = errors.New("unsupported playlist format")

// Playlist is a parsed playlist file.
type Playlist struct {
	Name  string
	Path  string
	Items []Item
}

// Item is one entry of a playlist.
type Item struct {
	// Path is the absolute path the entry resolves to.
	Path string
	// OrigPath is the entry as written in the playlist.
	OrigPath string
}

// Paths returns the resolved path of every item in order.
func (p *Playlist) Paths() []string {
	paths := make([]string, len(p.Items))
	for i, item := range p.Items {
		paths[i] = item.Path
	}
	return paths
}

// IsPlaylist reports whether path has a playlist extension Parse accepts.
func IsPlaylist(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8", ".pls", ".wpl":
		return true
	}
	return false
}

// Parse reads a playlist, choosing the format by extension.
func Parse(path string) (*Playlist, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8":
		return ParseM3U(path)
	case ".pls":
		return ParsePLS(path)
	case ".wpl":
		return ParseWPL(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlaylist, path)
	}
}

// ParseM3U reads an M3U playlist. Lines starting with '#' and blank lines
// are ignored.
func ParseM3U(path string) (*Playlist, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readM3U(f, path)
}

func readM3U(r io.Reader, path string) (*Playlist, error) {
	pl := newPlaylist(path)
	dir := filepath.Dir(path)

	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pl.Items = append(pl.Items, Item{Path: Resolve(dir, line), OrigPath: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pl, nil
}

// ParsePLS reads a PLS playlist. Only FileN= lines are used; lines that
// start with "File" but carry no '=' are logged and skipped.
func ParsePLS(path string) (*Playlist, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readPLS(f, path)
}

func readPLS(r io.Reader, path string) (*Playlist, error) {
	pl := newPlaylist(path)
	dir := filepath.Dir(path)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.HasPrefix(line, "#") || !strings.HasPrefix(line, "File") {
			continue
		}
		_, entry, ok := strings.Cut(line, "=")
		if !ok {
			logging.Warn("Malformed line in playlist file %s: %s", path, strings.TrimSpace(line))
			continue
		}
		if entry == "" {
			continue
		}
		pl.Items = append(pl.Items, Item{Path: Resolve(dir, entry), OrigPath: entry})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pl, nil
}

// Resolve turns a playlist entry into an absolute, cleaned path. file://
// URLs are decoded, Windows separators are normalized and relative entries
// are taken relative to dir.
func Resolve(dir, entry string) string {
	if strings.HasPrefix(entry, "file://") {
		if u, err := url.Parse(entry); err == nil {
			entry = u.Path
		}
	}

	entry = strings.ReplaceAll(entry, "\\", "/")

	if !filepath.IsAbs(entry) {
		entry = filepath.Join(dir, entry)
	}
	if abs, err := filepath.Abs(entry); err == nil {
		return abs
	}
	return filepath.Clean(entry)
}

func newPlaylist(path string) *Playlist {
	return &Playlist{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path: path,
	}
}
