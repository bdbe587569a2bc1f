// Package playlist parses playlist files into ordered lists of absolute
// paths.
//
// Supported formats:
//   - M3U / M3U8: one entry per line, '#' lines are comments
//   - PLS: only FileN= entries are read
//   - WPL: Windows Media Player XML playlists
//   - Rhythmbox playlists.xml: static playlists only
//
// Relative entries resolve against the playlist's own directory. file://
// URLs are percent-decoded and Windows separators are normalized, so a
// playlist written on another system still resolves when the files exist
// under the same relative layout.
package playlist
