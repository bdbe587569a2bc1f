package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"jukebox/internal/metrics"
)

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are exact paths that are not recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/healthz", "/livez", "/readyz"},
	}
}

// knownRoutes are recorded under their own label; every other path is
// folded into "/static" or "other" to keep cardinality bounded.
var knownRoutes = map[string]bool{
	"/":             true,
	"/getlibrary":   true,
	"/getplaylists": true,
	"/getcontent":   true,
	"/getart":       true,
	"/version":      true,
}

// Metrics records request counts, latency and in-flight requests. The
// status is captured with the same writer the access log uses.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			rw := newResponseWriter(w)
			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(seconds float64) {
				metrics.HTTPRequestDuration.WithLabelValues(r.Method, normalizePath(r.URL.Path)).Observe(seconds)
			}))
			next.ServeHTTP(rw, r)
			timer.ObserveDuration()

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, normalizePath(r.URL.Path), strconv.Itoa(rw.statusCode)).Inc()
		})
	}
}

// normalizePath maps a request path to a bounded metrics label.
func normalizePath(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/static/") || path == "/favicon.ico" {
		return "/static"
	}
	return "other"
}
