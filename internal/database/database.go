package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"jukebox/internal/logging"
	"jukebox/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the on-disk scan cache. It remembers the tags read for each
// audio file together with the file's modification time so unchanged files
// are not re-read on the next start.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// schema is applied on every open. scan_id marks the rows written by the
// most recent scan so stale ones can be pruned in one statement.
const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	path TEXT PRIMARY KEY,
	mod_time INTEGER NOT NULL,
	title TEXT NOT NULL,
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	scan_id INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tracks_scan_id ON tracks(scan_id);
CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

// New opens (creating if needed) the cache at dbPath. The parent directory
// must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	if err := checkWritable(dbPath); err != nil {
		logging.Warn("Scan cache permission check: %v", err)
	}

	db, err := openSQLite(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_, err = db.ExecContext(ctx, schema)
	recordQuery("initialize_schema", start, err)
	if err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to initialize scan cache schema: %w", err)
	}

	logging.Debug("Scan cache opened at %s", dbPath)
	return &Database{db: db, dbPath: dbPath}, nil
}

// openSQLite opens dbPath in WAL mode with a single connection. The cache is
// written once per scan so one writer is enough, and busy_timeout covers a
// concurrent reader holding the lock.
func openSQLite(ctx context.Context, dbPath string) (*sql.DB, error) {
	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to connect to scan cache: %w", err)
	}
	return db, nil
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.Error("Failed to close scan cache: %v", err)
	}
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// recordQuery records metrics for a database query
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// checkWritable reports why the cache at dbPath would fail to write, if it
// can tell.
func checkWritable(dbPath string) error {
	dir := filepath.Dir(dbPath)
	probe, err := os.CreateTemp(dir, ".jukebox-probe-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(dbPath + suffix)
		if err == nil && info.Mode().Perm()&0o200 == 0 {
			return fmt.Errorf("%s is read-only (mode %v)", dbPath+suffix, info.Mode())
		}
	}
	return nil
}
