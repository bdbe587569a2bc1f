// Package transcoder turns audio files into rate-limited Ogg Vorbis streams.
//
// Each stream is a two-process pipeline: a format-specific decoder (chosen
// by the decoder package) writes PCM into an OS pipe read by the encoder,
// oggenc by default. Processes are started from argument vectors, never a
// shell, so filenames are passed through untouched.
//
// In streaming mode the encoder's stdout is relayed as it is produced
// through a streaming.Shaper. In buffered mode the complete output is
// collected first so the response can carry a Content-Length.
//
// Both processes are bound to a per-stream context. A client disconnect
// cancels it, which sends SIGTERM to both and SIGKILL after a grace period.
// Every pipeline is reaped before Transcode returns.
package transcoder
