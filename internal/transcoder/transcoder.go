package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"jukebox/internal/decoder"
	"jukebox/internal/logging"
	"jukebox/internal/metrics"
	"jukebox/internal/streaming"
)

const (
	// DefaultEncoderPath is the Ogg Vorbis encoder used for every stream.
	DefaultEncoderPath = "/usr/bin/oggenc"

	// DefaultKillGrace is how long a process may ignore SIGTERM before it
	// is killed.
	DefaultKillGrace = 2 * time.Second

	modeBuffered  = "buffered"
	modeStreaming = "streaming"
)

// ErrEncoderMissing indicates that the encoder binary is not installed.
var ErrEncoderMissing = errors.New("encoder not installed")

// StreamGenerationError is returned for every failure to produce a stream.
// Hint, when set, tells the operator how to fix the problem.
type StreamGenerationError struct {
	Filename string
	Msg      string
	Hint     string
	Err      error
}

func (e *StreamGenerationError) Error() string {
	msg := fmt.Sprintf("stream generation failed for %s: %s", e.Filename, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *StreamGenerationError) Unwrap() error {
	return e.Err
}

// Request describes one stream.
type Request struct {
	Filename    string
	BitrateKbps int
	// Buffered collects the whole encoded file before sending it so the
	// response can carry a Content-Length.
	Buffered bool
}

// Options configures a Transcoder. Zero fields take defaults.
type Options struct {
	EncoderPath string
	Decoders    *decoder.Selector
	Shaper      *streaming.Shaper
	KillGrace   time.Duration
}

// Transcoder runs decoder | encoder pipelines and relays their output.
type Transcoder struct {
	encoderPath string
	decoders    *decoder.Selector
	shaper      *streaming.Shaper
	killGrace   time.Duration

	sessions  map[uint64]*session
	sessionMu sync.Mutex
	nextID    uint64
}

// New creates a new Transcoder instance.
func New(opts Options) *Transcoder {
	if opts.EncoderPath == "" {
		opts.EncoderPath = DefaultEncoderPath
	}
	if opts.Decoders == nil {
		opts.Decoders = decoder.NewSelector(nil)
	}
	if opts.Shaper == nil {
		opts.Shaper = streaming.NewShaper()
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = DefaultKillGrace
	}

	return &Transcoder{
		encoderPath: opts.EncoderPath,
		decoders:    opts.Decoders,
		shaper:      opts.Shaper,
		killGrace:   opts.KillGrace,
		sessions:    make(map[uint64]*session),
	}
}

// EncoderPath returns the configured encoder binary.
func (t *Transcoder) EncoderPath() string {
	return t.encoderPath
}

// Decoders returns the selector used to pick decoders.
func (t *Transcoder) Decoders() *decoder.Selector {
	return t.decoders
}

// EncoderCommand returns the encoder argument vector for a bitrate.
// The encoder reads raw PCM on stdin and writes Ogg Vorbis on stdout.
func (t *Transcoder) EncoderCommand(bitrateKbps int) []string {
	return []string{t.encoderPath, "-r", "-Q", "-b", strconv.Itoa(bitrateKbps), "-"}
}

// EncoderAvailable reports whether the encoder binary exists.
func (t *Transcoder) EncoderAvailable() bool {
	_, err := os.Stat(t.encoderPath)
	return err == nil
}

// Check verifies that filename can be streamed without starting any
// process. The error wraps decoder.ErrUnsupportedFormat,
// decoder.ErrDecoderMissing or ErrEncoderMissing.
func (t *Transcoder) Check(filename string) error {
	if err := t.decoders.Available(filename); err != nil {
		return err
	}
	if !t.EncoderAvailable() {
		return fmt.Errorf("%w: %s (install \"vorbis-tools\")", ErrEncoderMissing, t.encoderPath)
	}
	return nil
}

// Transcode decodes req.Filename, re-encodes it at req.BitrateKbps and
// writes the result to sink through the rate shaper. If sink is an
// http.ResponseWriter and the request is buffered, Content-Length is set
// before the first byte is written.
//
// A client disconnect is not an error: the pipeline is torn down and nil
// is returned. Every other failure is a *StreamGenerationError.
func (t *Transcoder) Transcode(ctx context.Context, req Request, sink io.Writer) error {
	if req.BitrateKbps <= 0 {
		return &StreamGenerationError{Filename: req.Filename, Msg: fmt.Sprintf("invalid bitrate %d", req.BitrateKbps)}
	}

	spec, err := t.decoders.Resolve(req.Filename)
	if err != nil {
		return &StreamGenerationError{Filename: req.Filename, Msg: "no decoder", Err: err}
	}
	if err := t.Check(req.Filename); err != nil {
		hint := ""
		if errors.Is(err, decoder.ErrDecoderMissing) {
			hint = fmt.Sprintf("install %q", spec.Package)
		} else if errors.Is(err, ErrEncoderMissing) {
			hint = "install \"vorbis-tools\""
		}
		return &StreamGenerationError{Filename: req.Filename, Msg: "pipeline unavailable", Hint: hint, Err: err}
	}

	mode := modeStreaming
	if req.Buffered {
		mode = modeBuffered
	}

	sess, err := t.start(ctx, req, spec)
	if err != nil {
		metrics.StreamsTotal.WithLabelValues(mode, "error").Inc()
		return &StreamGenerationError{Filename: req.Filename, Msg: "failed to start pipeline", Err: err}
	}

	t.track(sess)
	metrics.StreamsActive.Inc()
	defer func() {
		sess.close()
		t.untrack(sess)
		metrics.StreamsActive.Dec()
		metrics.StreamDuration.WithLabelValues(mode).Observe(time.Since(sess.started).Seconds())
		metrics.StreamBytesTotal.WithLabelValues(mode).Add(float64(sess.bytesWritten))
	}()

	if req.Buffered {
		err = t.relayBuffered(sess, sink)
	} else {
		err = t.relayStreaming(sess, sink)
	}

	switch {
	case err == nil:
		status := "success"
		if sess.encoderFailed() {
			status = "error"
		}
		metrics.StreamsTotal.WithLabelValues(mode, status).Inc()
		logging.Debug("Streamed %s: %d bytes in %v", req.Filename, sess.bytesWritten, time.Since(sess.started))
		return nil
	case errors.Is(err, streaming.ErrClientGone) || errors.Is(err, streaming.ErrStreamCanceled):
		metrics.StreamsTotal.WithLabelValues(mode, "disconnect").Inc()
		logging.Debug("Stream ended: %v for %s", err, req.Filename)
		return nil
	default:
		metrics.StreamsTotal.WithLabelValues(mode, "error").Inc()
		var sge *StreamGenerationError
		if errors.As(err, &sge) {
			return sge
		}
		return &StreamGenerationError{Filename: req.Filename, Msg: "stream failed", Err: err}
	}
}

// relayBuffered waits for the encoder to finish, then shapes the whole
// output from memory.
func (t *Transcoder) relayBuffered(sess *session, sink io.Writer) error {
	<-sess.encDone

	if sess.ctx.Err() != nil {
		return streaming.ErrClientGone
	}
	if sess.encErr != nil {
		logging.Error("Encoder stderr for %s: %s", sess.filename, sess.encStderr.String())
		return &StreamGenerationError{Filename: sess.filename, Msg: "encoder failed", Err: sess.encErr}
	}
	if err := sess.waitDecoder(); err != nil {
		logging.Warn("Decoder exited with %v for %s: %s", err, sess.filename, sess.decStderr.String())
		if sess.encoded.Len() == 0 {
			return &StreamGenerationError{Filename: sess.filename, Msg: "decoder failed", Err: err}
		}
	}

	if rw, ok := sink.(http.ResponseWriter); ok {
		rw.Header().Set("Content-Length", strconv.Itoa(sess.encoded.Len()))
	}

	n, err := t.shaper.Shape(sess.ctx, bytes.NewReader(sess.encoded.Bytes()), sink, sess.bitrate, func() bool { return true })
	sess.bytesWritten = n
	return err
}

// relayStreaming shapes encoder output as it is produced.
func (t *Transcoder) relayStreaming(sess *session, sink io.Writer) error {
	n, err := t.shaper.Shape(sess.ctx, sess.encOut, sink, sess.bitrate, sess.encoderExited)
	sess.bytesWritten = n
	if err != nil {
		return err
	}

	// The client already has whatever the encoder produced, so a failing
	// encoder only shows up in the log and the stream metrics.
	if sess.encoderFailed() {
		logging.Warn("Encoder exited with %v for %s: %s", sess.encErr, sess.filename, sess.encStderr.String())
	}
	return nil
}

// Cleanup terminates every running pipeline.
func (t *Transcoder) Cleanup() {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()

	for _, sess := range t.sessions {
		logging.Info("Stopping transcoding pipeline for: %s", sess.filename)
		sess.cancel()
	}
}

// ActiveSessions returns the number of pipelines currently running.
func (t *Transcoder) ActiveSessions() int {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()
	return len(t.sessions)
}

func (t *Transcoder) track(sess *session) {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()
	t.nextID++
	sess.id = t.nextID
	t.sessions[sess.id] = sess
}

func (t *Transcoder) untrack(sess *session) {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()
	delete(t.sessions, sess.id)
}
