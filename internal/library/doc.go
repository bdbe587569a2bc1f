// Package library builds the music catalog served to clients.
//
// A Backend produces an immutable Catalog once at startup:
//   - DirectoryBackend walks a directory tree, reading tags with
//     github.com/dhowden/tag and caching them in SQLite
//   - PlaylistBackend serves the entries of one .m3u/.pls/.wpl file
//   - RhythmboxBackend reads a Rhythmbox rhythmdb.xml and its static
//     playlists
//
// Tracks are numbered consecutively from 0 in display order; the key is
// the only handle clients use to request a stream. Library.Filename maps a
// key back to its source file.
//
// Files without tags still appear: the title falls back to the file name
// and the album to the two directories that contain it.
package library
