package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// Level is the gzip compression level (gzip.BestSpeed to gzip.BestCompression)
	Level int
	// CompressibleTypes lists the media types that are compressed
	CompressibleTypes []string
	// SkipPaths are served uncompressed (exact match). Audio and artwork
	// are already compressed and must keep their Content-Length.
	SkipPaths []string
}

// DefaultCompressionConfig returns the configuration used by the server.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/plain",
			"text/javascript",
			"application/json",
			"application/javascript",
			"image/svg+xml",
		},
		SkipPaths: []string{"/getcontent", "/getart"},
	}
}

// gzipPools holds one *sync.Pool of writers per compression level.
var gzipPools sync.Map

func getGzipWriter(level int, w io.Writer) *gzip.Writer {
	p, _ := gzipPools.LoadOrStore(level, &sync.Pool{
		New: func() any {
			gz, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				gz = gzip.NewWriter(io.Discard)
			}
			return gz
		},
	})
	gz := p.(*sync.Pool).Get().(*gzip.Writer)
	gz.Reset(w)
	return gz
}

func putGzipWriter(level int, gz *gzip.Writer) {
	if p, ok := gzipPools.Load(level); ok {
		p.(*sync.Pool).Put(gz)
	}
}

// acceptsGzip reports whether an Accept-Encoding header allows gzip,
// honoring q=0.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding != "gzip" && coding != "*" {
			continue
		}
		q := 1.0
		if name, value, ok := strings.Cut(strings.TrimSpace(params), "="); ok && strings.TrimSpace(name) == "q" {
			if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				q = v
			}
		}
		return q > 0
	}
	return false
}

// gzipResponseWriter buffers the first MinSize bytes to decide whether the
// response is worth compressing, then streams either through gzip or
// straight to the client.
type gzipResponseWriter struct {
	http.ResponseWriter
	config  CompressionConfig
	buffer  []byte
	status  int
	decided bool
	gz      *gzip.Writer
}

func newGzipResponseWriter(w http.ResponseWriter, config CompressionConfig) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		config:         config,
		status:         http.StatusOK,
		buffer:         make([]byte, 0, config.MinSize+1),
	}
}

// WriteHeader records the status until the compression decision is made.
func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if g.decided {
		return
	}
	g.status = statusCode
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.buffer = append(g.buffer, data...)
	if len(g.buffer) > g.config.MinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (g *gzipResponseWriter) compressible() bool {
	if g.Header().Get("Content-Encoding") != "" {
		return false
	}
	if g.status == http.StatusNoContent || g.status == http.StatusNotModified || g.status < http.StatusOK {
		return false
	}
	mediaType, _, _ := strings.Cut(g.Header().Get("Content-Type"), ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return mediaType != "" && slices.Contains(g.config.CompressibleTypes, mediaType)
}

// decide commits the headers and flushes the buffered bytes.
func (g *gzipResponseWriter) decide() error {
	if g.decided {
		return nil
	}
	g.decided = true

	buffered := g.buffer
	g.buffer = nil

	g.Header().Add("Vary", "Accept-Encoding")
	if len(buffered) < g.config.MinSize || !g.compressible() {
		g.ResponseWriter.WriteHeader(g.status)
		_, err := g.ResponseWriter.Write(buffered)
		return err
	}

	g.Header().Del("Content-Length")
	g.Header().Set("Content-Encoding", "gzip")
	g.ResponseWriter.WriteHeader(g.status)

	g.gz = getGzipWriter(g.config.Level, g.ResponseWriter)
	_, err := g.gz.Write(buffered)
	return err
}

// Close writes anything still buffered and returns the gzip writer to
// its pool.
func (g *gzipResponseWriter) Close() error {
	err := g.decide()
	if g.gz != nil {
		if cerr := g.gz.Close(); err == nil {
			err = cerr
		}
		putGzipWriter(g.config.Level, g.gz)
		g.gz = nil
	}
	return err
}

// Flush commits the response so far. Streams always reach the client even
// when fewer than MinSize bytes have been written.
func (g *gzipResponseWriter) Flush() {
	_ = g.decide()
	if g.gz != nil {
		_ = g.gz.Flush()
	}
	if flusher, ok := g.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (g *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

// Compression returns a middleware that gzips compressible responses for
// clients that accept it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) ||
				slices.Contains(config.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			gzw := newGzipResponseWriter(w, config)
			defer gzw.Close()
			next.ServeHTTP(gzw, r)
		})
	}
}
