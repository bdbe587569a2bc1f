package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "jukebox.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	tracks, err := db.LoadTracks(context.Background())
	if err != nil {
		t.Fatalf("LoadTracks failed: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("Expected empty cache, got %d entries", len(tracks))
	}
}

func TestNewUnwritableDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "jukebox.db"))
	if err == nil {
		t.Error("Expected error for a database in a nonexistent directory")
	}
}

func TestSyncTracksRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mtime := time.Unix(1700000000, 123456789)
	in := []CachedTrack{
		{Path: "/music/a.flac", ModTime: mtime, Title: "A", Artist: "Artist", Album: "Album"},
		{Path: "/music/b.mp3", ModTime: mtime, Title: "b.mp3", Album: "music"},
	}

	deleted, err := db.SyncTracks(ctx, in)
	if err != nil {
		t.Fatalf("SyncTracks failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 deletions on first sync, got %d", deleted)
	}

	got, err := db.LoadTracks(ctx)
	if err != nil {
		t.Fatalf("LoadTracks failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}

	a := got["/music/a.flac"]
	if a.Title != "A" || a.Artist != "Artist" || a.Album != "Album" {
		t.Errorf("Unexpected entry: %+v", a)
	}
	if !a.ModTime.Equal(mtime) {
		t.Errorf("ModTime = %v, want %v", a.ModTime, mtime)
	}
}

func TestSyncTracksDeletesMissing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := db.SyncTracks(ctx, []CachedTrack{
		{Path: "/music/keep.ogg", ModTime: now, Title: "keep"},
		{Path: "/music/gone.ogg", ModTime: now, Title: "gone"},
	}); err != nil {
		t.Fatalf("SyncTracks failed: %v", err)
	}

	// Ensure the second scan gets a distinct scan id.
	time.Sleep(time.Millisecond)

	deleted, err := db.SyncTracks(ctx, []CachedTrack{{Path: "/music/keep.ogg", ModTime: now, Title: "kept"}})
	if err != nil {
		t.Fatalf("SyncTracks failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deletion, got %d", deleted)
	}

	got, _ := db.LoadTracks(ctx)
	if _, ok := got["/music/gone.ogg"]; ok {
		t.Error("Stale entry was not deleted")
	}
	if got["/music/keep.ogg"].Title != "kept" {
		t.Errorf("Entry was not updated: %+v", got["/music/keep.ogg"])
	}
}

func TestCachedTrackFresh(t *testing.T) {
	base := time.Unix(1000, 0)
	c := CachedTrack{ModTime: base}

	tests := []struct {
		name    string
		modTime time.Time
		want    bool
	}{
		{"same mtime", base, true},
		{"older file", base.Add(-time.Second), true},
		{"newer file", base.Add(time.Nanosecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Fresh(tt.modTime); got != tt.want {
				t.Errorf("Fresh(%v) = %v, want %v", tt.modTime, got, tt.want)
			}
		})
	}
}

func TestLastScan(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	when, root, err := db.GetLastScan(ctx)
	if err != nil {
		t.Fatalf("GetLastScan failed: %v", err)
	}
	if !when.IsZero() || root != "" {
		t.Errorf("Expected no scan recorded, got %v %q", when, root)
	}

	scanned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SetLastScan(ctx, scanned, "/music"); err != nil {
		t.Fatalf("SetLastScan failed: %v", err)
	}

	when, root, err = db.GetLastScan(ctx)
	if err != nil {
		t.Fatalf("GetLastScan failed: %v", err)
	}
	if !when.Equal(scanned) || root != "/music" {
		t.Errorf("GetLastScan = %v %q, want %v /music", when, root, scanned)
	}
}

func TestRecordQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		operation string
		err       error
	}{
		{"successful query", "load_cache", nil},
		{"failed query", "save_tracks", errors.New("test error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Must not panic for either outcome.
			recordQuery(tt.operation, time.Now(), tt.err)
		})
	}
}
