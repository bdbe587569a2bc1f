// Package artwork turns cover pictures embedded in audio tags into JPEG
// thumbnails for the web client.
package artwork
