package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jukebox/internal/database"
	"jukebox/internal/decoder"
)

func setupMusicDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeAudio(t, filepath.Join(root, "Band", "Record", "10 - Ten.mp3"), id3v23(map[string]string{"TIT2": "Ten", "TPE1": "Band"}))
	writeAudio(t, filepath.Join(root, "Band", "Record", "9 - Nine.mp3"), id3v23(map[string]string{"TIT2": "Nine", "TPE1": "Band"}))
	writeAudio(t, filepath.Join(root, "loose.flac"), []byte("no tags here at all"))
	writeAudio(t, filepath.Join(root, "notes.txt"), []byte("not music"))
	writeAudio(t, filepath.Join(root, "Band", "Record", "cover.jpg"), []byte("jpeg"))
	writeAudio(t, filepath.Join(root, "best.m3u"), []byte("#EXTM3U\nBand/Record/9 - Nine.mp3\nmissing.ogg\nloose.flac\n"))

	return root
}

func TestDirectoryBackendLoad(t *testing.T) {
	root := setupMusicDir(t)

	b := &DirectoryBackend{Root: root, Decoders: decoder.NewSelector(nil), Workers: 2}
	c, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(c.Tracks) != 3 {
		t.Fatalf("Expected 3 tracks, got %d: %+v", len(c.Tracks), c.Tracks)
	}

	// Natural order: Band/Record/9 before Band/Record/10, both before loose.flac.
	wantTitles := []string{"Nine", "Ten", "loose.flac"}
	for i, want := range wantTitles {
		if c.Tracks[i].Title != want {
			t.Errorf("Track %d title = %q, want %q", i, c.Tracks[i].Title, want)
		}
		if c.Tracks[i].Key != i {
			t.Errorf("Track %d key = %d", i, c.Tracks[i].Key)
		}
	}

	lib := New(c)
	name, err := lib.Filename("2")
	if err != nil || name != filepath.Join(root, "loose.flac") {
		t.Errorf("Filename(2) = %q, %v", name, err)
	}

	if len(c.Playlists) != 1 {
		t.Fatalf("Expected 1 playlist, got %d", len(c.Playlists))
	}
	pl := c.Playlists[0]
	if pl.Name != "best" || len(pl.Items) != 2 || pl.Items[0] != 0 || pl.Items[1] != 2 {
		t.Errorf("Unexpected playlist: %+v", pl)
	}
}

func TestDirectoryBackendMissingRoot(t *testing.T) {
	b := &DirectoryBackend{Root: filepath.Join(t.TempDir(), "nope"), Decoders: decoder.NewSelector(nil)}
	if _, err := b.Load(context.Background()); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestDirectoryBackendUsesCache(t *testing.T) {
	root := setupMusicDir(t)
	ctx := context.Background()

	cache, err := database.New(ctx, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	defer cache.Close()

	b := &DirectoryBackend{Root: root, Decoders: decoder.NewSelector(nil), Cache: cache, Workers: 2}
	if _, err := b.Load(ctx); err != nil {
		t.Fatalf("first Load failed: %v", err)
	}

	cached, err := cache.LoadTracks(ctx)
	if err != nil {
		t.Fatalf("LoadTracks failed: %v", err)
	}
	if len(cached) != 3 {
		t.Fatalf("Expected 3 cached entries, got %d", len(cached))
	}

	// Rewrite one cached title with a newer mtime; an unchanged file must
	// be served from the cache.
	nine := filepath.Join(root, "Band", "Record", "9 - Nine.mp3")
	entry := cached[nine]
	entry.Title = "From Cache"
	entry.ModTime = time.Now().Add(time.Hour)
	var rows []database.CachedTrack
	for path, c := range cached {
		if path == nine {
			c = entry
		}
		rows = append(rows, c)
	}
	time.Sleep(time.Millisecond)
	if _, err := cache.SyncTracks(ctx, rows); err != nil {
		t.Fatalf("SyncTracks failed: %v", err)
	}

	// A removed file disappears from both catalog and cache.
	if err := os.Remove(filepath.Join(root, "loose.flac")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	time.Sleep(time.Millisecond)

	c, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if c.Tracks[0].Title != "From Cache" {
		t.Errorf("Expected cached title, got %q", c.Tracks[0].Title)
	}
	if len(c.Tracks) != 2 {
		t.Errorf("Expected 2 tracks after removal, got %d", len(c.Tracks))
	}

	cached, _ = cache.LoadTracks(ctx)
	if _, ok := cached[filepath.Join(root, "loose.flac")]; ok {
		t.Error("Removed file still in cache")
	}

	when, scannedRoot, err := cache.GetLastScan(ctx)
	if err != nil || when.IsZero() || scannedRoot != root {
		t.Errorf("GetLastScan = %v %q %v", when, scannedRoot, err)
	}
}

func TestDirectoryBackendCanceled(t *testing.T) {
	root := setupMusicDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &DirectoryBackend{Root: root, Decoders: decoder.NewSelector(nil)}
	if _, err := b.Load(ctx); err == nil {
		t.Error("Expected error for canceled context")
	}
}
