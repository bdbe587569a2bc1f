package database

import (
	"context"
	"fmt"
	"time"
)

// CachedTrack is the tag data remembered for one file.
type CachedTrack struct {
	Path    string
	ModTime time.Time
	Title   string
	Artist  string
	Album   string
}

// Fresh reports whether the cached entry can stand in for a file last
// modified at modTime.
func (c CachedTrack) Fresh(modTime time.Time) bool {
	return !c.ModTime.Before(modTime)
}

// LoadTracks returns every cached entry keyed by absolute path.
func (d *Database) LoadTracks(ctx context.Context) (map[string]CachedTrack, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	tracks, err := d.loadTracks(ctx)
	recordQuery("load_cache", start, err)
	return tracks, err
}

func (d *Database) loadTracks(ctx context.Context) (map[string]CachedTrack, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT path, mod_time, title, artist, album FROM tracks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make(map[string]CachedTrack)
	for rows.Next() {
		var (
			t       CachedTrack
			modTime int64
		)
		if err := rows.Scan(&t.Path, &modTime, &t.Title, &t.Artist, &t.Album); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		t.ModTime = time.Unix(0, modTime)
		tracks[t.Path] = t
	}
	return tracks, rows.Err()
}

// SyncTracks makes the cache hold exactly tracks: entries are inserted or
// updated and rows for files no longer present are deleted. It returns the
// number of rows deleted.
func (d *Database) SyncTracks(ctx context.Context, tracks []CachedTrack) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	scanID := time.Now().UnixNano()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	start := time.Now()
	err = func() error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (path, mod_time, title, artist, album, scan_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mod_time = excluded.mod_time,
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			scan_id = excluded.scan_id
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range tracks {
			if _, err := stmt.ExecContext(ctx, t.Path, t.ModTime.UnixNano(), t.Title, t.Artist, t.Album, scanID); err != nil {
				return fmt.Errorf("failed to save %s: %w", t.Path, err)
			}
		}
		return nil
	}()
	recordQuery("save_tracks", start, err)
	if err != nil {
		return 0, err
	}

	start = time.Now()
	result, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE scan_id != ?`, scanID)
	recordQuery("delete_missing", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete missing tracks: %w", err)
	}
	deleted, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan cache: %w", err)
	}
	return deleted, nil
}
