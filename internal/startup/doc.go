// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads environment variables and then command line flags,
// which override them:
//
//   - --backend / BACKEND: dir, playlist or rhythmbox (default: dir)
//   - --path / MUSIC_PATH: music directory or playlist file (dir default: current directory)
//   - -b, --bitrate / BITRATE: output bitrate in kbit/s (default: 64)
//   - --bind_address / BIND_ADDRESS: listen address (default: all)
//   - -p, --port / PORT: HTTP server port (default: 8080)
//   - --basic_auth_file / BASIC_AUTH_FILE: htpasswd file enabling basic auth
//   - --rhythmbox_db / RHYTHMBOX_DB: Rhythmbox database location
//   - --cache_db / CACHE_DB: scan cache (default: <path>/jukebox.db)
//   - --no_cache: disable the scan cache
//   - --encoder / ENCODER_PATH: Ogg Vorbis encoder (default: /usr/bin/oggenc)
//   - --metrics_port / METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - --log-level / LOG_LEVEL: debug, info, warn, error (default: info)
//   - METRICS_ENABLED: enable or disable the metrics server (default: true)
//   - LOG_STATIC_FILES: log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: log health check requests (default: true)
//
// Invalid settings yield an [*ArgsError]; -h and --help yield [ErrHelp].
// Callers print [Usage] in both cases.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X jukebox/internal/startup.Version=1.2.0" ./cmd/jukebox
//
// # Lifecycle Logging
//
//   - [LogCacheInit]: scan cache location and last scan
//   - [LogTranscoderInit]: encoder and decoder availability
//   - [LogAuthInit]: basic authentication state
//   - [LogLibraryInit], [LogLibraryLoaded]: library load progress
//   - [LogHTTPRoutes]: registered HTTP routes (debug level)
//   - [LogServerStarted]: server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: graceful shutdown
package startup
