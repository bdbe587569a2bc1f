// Package metrics provides Prometheus instrumentation for the jukebox server.
//
// All metrics are prefixed with "jukebox_" and registered with the default
// registry through promauto. They are exposed by mounting promhttp.Handler()
// on the metrics server.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Stream Metrics
//   - StreamsTotal: Counter by mode (buffered/streaming) and outcome
//   - StreamsActive: Gauge of streams in progress
//   - StreamBytesTotal: Counter of encoded bytes relayed to clients
//   - StreamDuration: Histogram of per-stream wall time
//   - TranscoderProcesses: Gauge of live decoder/encoder subprocesses
//   - DecoderUnavailableTotal: Counter of extensions with a missing decoder
//
// ## Library Metrics
//   - LibraryTracks, LibraryPlaylists: catalog size
//   - LibraryScanDuration, LibraryScanFilesTotal, LibraryScanErrors
//
// ## Database Metrics
//   - DBQueryTotal, DBQueryDuration, DBSizeBytes for the scan cache
//
// # Collector
//
// [Collector] periodically reads a [StatsProvider] and refreshes the gauges
// that are derived from other components:
//
//	collector := metrics.NewCollector(provider, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Streams ending in client disconnects:
//
//	sum(rate(jukebox_streams_total{status="disconnect"}[5m])) by (mode)
//
// Average relay rate:
//
//	rate(jukebox_stream_bytes_total[5m])
package metrics
