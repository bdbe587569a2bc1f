package playlist

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

type rhythmboxPlaylists struct {
	Playlists []rhythmboxPlaylist `xml:"playlist"`
}

type rhythmboxPlaylist struct {
	Name      string   `xml:"name,attr"`
	Type      string   `xml:"type,attr"`
	Locations []string `xml:"location"`
}

// ParseRhythmbox reads Rhythmbox's playlists.xml and returns its static
// playlists. Automatic and queue playlists are skipped. Locations are
// file:// URLs and are decoded to absolute paths.
func ParseRhythmbox(path string) ([]*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readRhythmbox(f, path)
}

func readRhythmbox(r io.Reader, path string) ([]*Playlist, error) {
	var doc rhythmboxPlaylists
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var out []*Playlist
	for _, p := range doc.Playlists {
		if p.Type != "static" {
			continue
		}
		pl := &Playlist{Name: p.Name, Path: path}
		for _, loc := range p.Locations {
			if loc == "" {
				continue
			}
			pl.Items = append(pl.Items, Item{Path: Resolve("/", loc), OrigPath: loc})
		}
		out = append(out, pl)
	}
	return out, nil
}
