// Command jukebox serves a music library to web browsers.
//
// Tracks are decoded with an external decoder chosen by file extension,
// re-encoded to Ogg Vorbis by oggenc at a fixed bitrate, and sent to the
// client no faster than that bitrate allows. The library comes from one of
// three backends:
//
//   - dir: a recursive scan of a music directory, with tags read from the
//     files and cached in SQLite between runs
//   - playlist: an .m3u, .m3u8 or .pls file
//   - rhythmbox: the Rhythmbox rhythmdb.xml database and its static playlists
//
// # Startup
//
//  1. GOMEMLIMIT is derived from MEMORY_LIMIT or GOMEMLIMIT
//  2. Flags and environment variables are parsed and validated
//  3. The scan cache, transcoder and htpasswd file are opened
//  4. The HTTP server starts while the library loads in the background;
//     catalog routes and /readyz answer 503 until the load finishes
//
// A failed library load (for example a missing playlist file) stops the
// process with exit status 1.
//
// # HTTP Server
//
// The main server exposes the web client at /, the catalog at /getlibrary
// and /getplaylists, audio at /getcontent?key=K and cover art at
// /getart?key=K. Health probes live at /healthz, /livez and /readyz. When
// --basic_auth_file is set every route except the probes requires HTTP
// basic authentication.
//
// Prometheus metrics are served at /metrics on a separate port
// (METRICS_PORT, default 9090) unless METRICS_ENABLED=false.
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the library scan is cancelled, every transcoding
// pipeline is terminated, and both servers are shut down with a 30 second
// timeout.
//
// Run jukebox --help for the full list of flags.
package main
