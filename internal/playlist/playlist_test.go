package playlist

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseM3U(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lists", "Road Trip.m3u")
	writeFile(t, path, "#EXTM3U\n#EXTINF:123,Artist - Title\n../music/a.mp3\r\n\n/abs/b.flac\nsub\\c.ogg\n")

	pl, err := ParseM3U(path)
	if err != nil {
		t.Fatalf("ParseM3U failed: %v", err)
	}

	if pl.Name != "Road Trip" {
		t.Errorf("Expected name %q, got %q", "Road Trip", pl.Name)
	}

	want := []string{
		filepath.Join(dir, "music", "a.mp3"),
		"/abs/b.flac",
		filepath.Join(dir, "lists", "sub", "c.ogg"),
	}
	got := pl.Paths()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
	if pl.Items[0].OrigPath != "../music/a.mp3" {
		t.Errorf("OrigPath = %q", pl.Items[0].OrigPath)
	}
}

func TestParsePLS(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	dir := t.TempDir()
	path := filepath.Join(dir, "mix.pls")
	writeFile(t, path, strings.Join([]string{
		"[playlist]",
		"NumberOfEntries=3",
		"File1=one.mp3",
		"Title1=One",
		"FileBroken",
		"# File9=commented.mp3",
		"File2=/music/two.flac",
		"Length2=-1",
		"Version=2",
	}, "\n"))

	pl, err := ParsePLS(path)
	if err != nil {
		t.Fatalf("ParsePLS failed: %v", err)
	}

	want := []string{filepath.Join(dir, "one.mp3"), "/music/two.flac"}
	if strings.Join(pl.Paths(), "|") != strings.Join(want, "|") {
		t.Errorf("Paths() = %v, want %v", pl.Paths(), want)
	}
	if !strings.Contains(buf.String(), "Malformed line") {
		t.Errorf("Expected a warning for the malformed line, got %q", buf.String())
	}
}

func TestParseWPL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "favs.wpl")
	writeFile(t, path, `<?wpl version="1.0"?>
<smil>
  <head><title>Favourites</title></head>
  <body><seq>
    <media src="..\Music\song.mp3"/>
    <media src=""/>
  </seq></body>
</smil>`)

	pl, err := ParseWPL(path)
	if err != nil {
		t.Fatalf("ParseWPL failed: %v", err)
	}
	if pl.Name != "Favourites" {
		t.Errorf("Expected name Favourites, got %q", pl.Name)
	}
	if len(pl.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(pl.Items))
	}
	if want := filepath.Join(filepath.Dir(dir), "Music", "song.mp3"); pl.Items[0].Path != want {
		t.Errorf("Path = %q, want %q", pl.Items[0].Path, want)
	}
}

func TestParseRhythmbox(t *testing.T) {
	xmlDoc := `<?xml version="1.0"?>
<rhythmdb-playlists>
  <playlist name="My Top Rated" type="automatic"><conjunction/></playlist>
  <playlist name="Chill" type="static">
    <location>file:///music/Some%20Band/01%20-%20Intro.ogg</location>
    <location>file:///music/b.mp3</location>
  </playlist>
  <playlist name="Play Queue" type="queue"/>
</rhythmdb-playlists>`

	pls, err := readRhythmbox(strings.NewReader(xmlDoc), "playlists.xml")
	if err != nil {
		t.Fatalf("readRhythmbox failed: %v", err)
	}
	if len(pls) != 1 {
		t.Fatalf("Expected 1 static playlist, got %d", len(pls))
	}
	if pls[0].Name != "Chill" {
		t.Errorf("Expected Chill, got %q", pls[0].Name)
	}
	want := []string{"/music/Some Band/01 - Intro.ogg", "/music/b.mp3"}
	if strings.Join(pls[0].Paths(), "|") != strings.Join(want, "|") {
		t.Errorf("Paths() = %v, want %v", pls[0].Paths(), want)
	}
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse("/tmp/list.xspf")
	if !errors.Is(err, ErrUnsupportedPlaylist) {
		t.Errorf("Expected ErrUnsupportedPlaylist, got %v", err)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.m3u"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestIsPlaylist(t *testing.T) {
	tests := map[string]bool{
		"a.m3u":  true,
		"a.M3U8": true,
		"a.pls":  true,
		"a.wpl":  true,
		"a.mp3":  false,
		"m3u":    false,
	}
	for name, want := range tests {
		if got := IsPlaylist(name); got != want {
			t.Errorf("IsPlaylist(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		dir, entry, want string
	}{
		{"/lists", "a.mp3", "/lists/a.mp3"},
		{"/lists", "../music/a.mp3", "/music/a.mp3"},
		{"/lists", "/abs/a.mp3", "/abs/a.mp3"},
		{"/lists", "file:///x/with%20space.ogg", "/x/with space.ogg"},
		{"/lists", `sub\dir\a.mp3`, "/lists/sub/dir/a.mp3"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.dir, tt.entry); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.dir, tt.entry, got, tt.want)
		}
	}
}
