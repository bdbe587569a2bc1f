// Package handlers provides the HTTP handlers of the jukebox server.
//
// It includes handlers for:
//   - The catalog (/getlibrary, /getplaylists)
//   - Audio streaming (/getcontent) and cover art (/getart)
//   - Health checks and version information
//
// Requests that name a track take a decimal key query parameter. A missing
// or malformed key is a 400, an unknown key a 404. /getcontent checks that
// the file can be decoded and encoded before committing any header.
package handlers
