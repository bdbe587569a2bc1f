// Package database provides the SQLite scan cache for the directory
// library backend.
//
// Each row records an audio file's absolute path, its modification time
// and the title, artist and album read from its tags. On startup the
// directory backend reuses any row whose modification time is not older
// than the file's, and only reads tags for new or changed files.
// SyncTracks then rewrites the cache to match the scan, dropping rows for
// files that have disappeared.
//
// The database uses WAL mode and records query counts and latencies in
// the jukebox_db_* metrics.
package database
