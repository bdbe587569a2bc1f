package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter records the status and body size for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig controls which requests reach the access log.
type LoggingConfig struct {
	// SkipPaths are prefixes that are never logged.
	SkipPaths []string
	// SkipExtensions are suffixes treated as static assets.
	SkipExtensions  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig logs health checks but not static assets.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{},
		SkipExtensions:  []string{".css", ".js", ".ico", ".png", ".svg"},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// Logger writes one W3C extended format line per request:
//
//	date time c-ip cs-username cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken sc(Content-Encoding) cs(User-Agent) cs(Referer)
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)
			r = r.WithContext(withUserSlot(r.Context()))

			next.ServeHTTP(rw, r)

			//nolint:gosec // G706: request fields pass through sanitizeLogField.
			log.Println(accessLine(r, rw, start, time.Since(start)))
		})
	}
}

// accessLine formats a completed request. Empty fields become "-".
func accessLine(r *http.Request, rw *responseWriter, start time.Time, took time.Duration) string {
	ts := start.UTC()

	user := ""
	if u, ok := Username(r.Context()); ok {
		user = escapeW3CField(sanitizeLogField(u))
	}
	agent := sanitizeLogField(r.Header.Get("User-Agent"))
	if agent != "" {
		agent = escapeW3CField(agent)
	}

	fields := []string{
		ts.Format(time.DateOnly),
		ts.Format(time.TimeOnly),
		sanitizeLogField(getClientIP(r)),
		user,
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		sanitizeLogField(r.URL.RawQuery),
		strconv.Itoa(rw.statusCode),
		strconv.FormatInt(rw.bytesWritten, 10),
		strconv.FormatInt(took.Milliseconds(), 10),
		rw.Header().Get("Content-Encoding"),
		agent,
		sanitizeLogField(r.Header.Get("Referer")),
	}
	for i, f := range fields {
		if f == "" {
			fields[i] = "-"
		}
	}
	return strings.Join(fields, " ")
}

// sanitizeLogField keeps a client-supplied value on one log line. Line
// breaks become spaces; other control characters except tab are dropped.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, prefix := range config.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if healthCheckPaths[path] {
		return !config.LogHealthChecks
	}
	if config.LogStaticFiles {
		return false
	}
	lower := strings.ToLower(path)
	for _, ext := range config.SkipExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// getClientIP prefers proxy headers, then the connection's remote host.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// escapeW3CField quotes values containing whitespace or quotes, doubling
// embedded quotes.
func escapeW3CField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
