package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jukebox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Stream metrics
var (
	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_streams_total",
			Help: "Total number of audio streams by mode and outcome",
		},
		[]string{"mode", "status"}, // mode: "buffered", "streaming"; status: "success", "disconnect", "error"
	)

	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_streams_active",
			Help: "Number of audio streams currently being transcoded",
		},
	)

	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_stream_bytes_total",
			Help: "Total number of encoded bytes relayed to clients",
		},
		[]string{"mode"},
	)

	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jukebox_stream_duration_seconds",
			Help:    "Wall time spent serving a single stream",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"mode"},
	)

	TranscoderProcesses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_transcoder_processes",
			Help: "Number of live decoder and encoder subprocesses",
		},
	)

	DecoderUnavailableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_decoder_unavailable_total",
			Help: "Extensions whose decoder binary was found to be missing",
		},
		[]string{"extension"},
	)
)

// Library metrics
var (
	LibraryTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_library_tracks",
			Help: "Number of playable tracks in the catalog",
		},
	)

	LibraryPlaylists = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_library_playlists",
			Help: "Number of playlists in the catalog",
		},
	)

	LibraryScanDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_library_scan_duration_seconds",
			Help: "Duration of the last library load in seconds",
		},
	)

	LibraryScanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_library_scan_files_total",
			Help: "Files added to the catalog by metadata source",
		},
		[]string{"source"}, // "cache", "tags", "fallback"
	)

	LibraryScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jukebox_library_scan_errors_total",
			Help: "Total number of files skipped because they could not be read",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemStaleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors returned by the music filesystem",
		},
		[]string{"operation"}, // "stat", "open"
	)

	FilesystemRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_filesystem_retries_total",
			Help: "Total number of retried filesystem operations by outcome",
		},
		[]string{"operation", "status"}, // status: "success", "failure"
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_db_queries_total",
			Help: "Total number of scan cache queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jukebox_db_query_duration_seconds",
			Help:    "Scan cache query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_db_size_bytes",
			Help: "Size of the scan cache database file in bytes",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the Go memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_memory_paused",
			Help: "1 while library scanning is paused for memory pressure",
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_auth_attempts_total",
			Help: "Total number of basic authentication attempts",
		},
		[]string{"status"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jukebox_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
