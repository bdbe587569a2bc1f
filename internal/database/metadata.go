package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	keyLastScan  = "last_scan"
	keyMusicPath = "music_path"
)

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastScan returns when the library was last scanned and from which
// root. It returns the zero time if no scan has been recorded.
func (d *Database) GetLastScan(ctx context.Context) (time.Time, string, error) {
	value, err := d.GetMetadata(ctx, keyLastScan)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return time.Time{}, "", nil
	}
	if err != nil {
		return time.Time{}, "", err
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, "", err
	}

	root, err := d.GetMetadata(ctx, keyMusicPath)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, "", err
	}
	return timestamp, root, nil
}

// SetLastScan records a completed scan of root.
func (d *Database) SetLastScan(ctx context.Context, t time.Time, root string) error {
	if err := d.SetMetadata(ctx, keyMusicPath, root); err != nil {
		return err
	}
	return d.SetMetadata(ctx, keyLastScan, t.UTC().Format(time.RFC3339))
}
