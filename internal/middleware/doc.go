// Package middleware provides HTTP middleware for the jukebox server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path labels
//   - gzip compression for catalog responses (never for audio)
//   - HTTP basic authentication against an htpasswd file
//
// Every response writer wrapper implements http.Flusher and Unwrap so the
// stream rate shaper can flush through the whole chain.
package middleware
