package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"jukebox/internal/logging"
)

const (
	// RateMultiplier caps delivery at this multiple of the real-time rate.
	RateMultiplier = 2.0

	// WriteFrequency is the number of shaping ticks per second.
	WriteFrequency = 128

	// ChunkSize is the largest read performed on a single tick.
	ChunkSize = 8192

	// pollTimeout bounds a read on a pipe that has no data yet. Go's
	// poller rejects deadlines already in the past, so this is the
	// smallest practical "would block" window.
	pollTimeout = time.Millisecond
)

// Sentinel errors for streaming operations.
var (
	// ErrClientGone indicates that the sink rejected a write or the request
	// context was canceled. Upstream producers should be terminated.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the stream was stopped by a deadline
	// rather than by the client.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Shaper relays bytes from a source to a sink at a bounded rate.
// The zero value uses the package defaults.
type Shaper struct {
	// Interval is the time between ticks. Default: 1s / WriteFrequency.
	Interval time.Duration
	// ChunkSize is the per-tick read size. Default: ChunkSize.
	ChunkSize int
	// RateMultiplier scales the target bitrate. Default: RateMultiplier.
	RateMultiplier float64
}

// NewShaper returns a Shaper with the default tick rate, chunk size and
// rate multiplier.
func NewShaper() *Shaper {
	return &Shaper{
		Interval:       time.Second / WriteFrequency,
		ChunkSize:      ChunkSize,
		RateMultiplier: RateMultiplier,
	}
}

// MaxBytesPerSecond returns the delivery ceiling for a bitrate in kbps.
func MaxBytesPerSecond(bitrateKbps int, multiplier float64) float64 {
	return multiplier * float64(bitrateKbps) * 1024 / 8
}

func (s *Shaper) interval() time.Duration {
	if s == nil || s.Interval <= 0 {
		return time.Second / WriteFrequency
	}
	return s.Interval
}

func (s *Shaper) chunkSize() int {
	if s == nil || s.ChunkSize <= 0 {
		return ChunkSize
	}
	return s.ChunkSize
}

func (s *Shaper) multiplier() float64 {
	if s == nil || s.RateMultiplier <= 0 {
		return RateMultiplier
	}
	return s.RateMultiplier
}

// Shape copies src to sink, never exceeding the rate ceiling for
// bitrateKbps. It returns once exhausted reports true and the read that
// follows yields no data. exhausted is always consulted before the read,
// so bytes produced just before the source finished are not lost.
//
// A failed sink write returns an error wrapping ErrClientGone and nothing
// further is read or written. The returned count is the number of bytes
// the sink accepted.
func (s *Shaper) Shape(ctx context.Context, src io.Reader, sink io.Writer, bitrateKbps int, exhausted func() bool) (int64, error) {
	if bitrateKbps <= 0 {
		return 0, fmt.Errorf("invalid bitrate %d", bitrateKbps)
	}

	maxRate := MaxBytesPerSecond(bitrateKbps, s.multiplier())
	buf := make([]byte, s.chunkSize())
	flusher, _ := sink.(http.Flusher)

	var written int64
	start := time.Now()

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return written, contextError(ctx)
		case <-ticker.C:
		}

		elapsed := time.Since(start).Seconds()
		if float64(written) >= elapsed*maxRate {
			continue
		}

		done := exhausted()

		n, err := readChunk(src, buf)
		if err != nil {
			return written, fmt.Errorf("read source: %w", err)
		}

		if n == 0 {
			if done {
				logging.Debug("Shaped %d bytes in %v", written, time.Since(start))
				return written, nil
			}
			continue
		}

		m, err := sink.Write(buf[:n])
		written += int64(m)
		if err == nil && m < n {
			err = io.ErrShortWrite
		}
		if err != nil {
			return written, fmt.Errorf("%w: %v", ErrClientGone, err)
		}

		if flusher != nil {
			flusher.Flush()
		}
	}
}

type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// readChunk performs a read that does not block on an empty pipe. Data
// not yet available and end of stream both read as zero bytes.
func readChunk(src io.Reader, buf []byte) (int, error) {
	if dr, ok := src.(deadlineReader); ok {
		// Non-pollable files return os.ErrNoDeadline; those fall back to
		// a plain read below.
		_ = dr.SetReadDeadline(time.Now().Add(pollTimeout))
	}

	n, err := src.Read(buf)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, os.ErrDeadlineExceeded):
		return n, nil
	default:
		return n, err
	}
}

// contextError maps a finished context to a streaming sentinel.
func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ErrClientGone
	}
	return ErrStreamCanceled
}
