package transcoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"jukebox/internal/decoder"
	"jukebox/internal/metrics"
	"jukebox/internal/streaming"
)

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", name, err)
	}
	return path
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// newFakeTranscoder wires a transcoder whose decoder prints its last
// argument's contents and whose encoder copies stdin to stdout.
func newFakeTranscoder(t *testing.T, decoderBody, encoderBody string) (*Transcoder, string) {
	t.Helper()
	requireShell(t)

	dir := t.TempDir()
	dec := writeScript(t, dir, "fake-decoder", decoderBody)
	enc := writeScript(t, dir, "fake-encoder", encoderBody)

	tr := New(Options{
		EncoderPath: enc,
		Decoders:    decoder.NewSelector(map[string]decoder.Spec{"flac": {Path: dec}}),
		KillGrace:   500 * time.Millisecond,
	})
	return tr, dir
}

const (
	catLastArg = `for last; do :; done; exec cat "$last"`
	catStdin   = `exec cat`
)

// failingWriter accepts the first limit writes and rejects the rest.
type failingWriter struct {
	limit  int
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.limit {
		return 0, errors.New("broken pipe")
	}
	return len(p), nil
}

func TestNewDefaults(t *testing.T) {
	tr := New(Options{})

	if tr.EncoderPath() != DefaultEncoderPath {
		t.Errorf("Expected encoder %s, got %s", DefaultEncoderPath, tr.EncoderPath())
	}
	if tr.killGrace != DefaultKillGrace {
		t.Errorf("Expected kill grace %v, got %v", DefaultKillGrace, tr.killGrace)
	}
	if tr.Decoders() == nil || tr.shaper == nil {
		t.Error("Expected decoders and shaper to be initialized")
	}
	if tr.ActiveSessions() != 0 {
		t.Errorf("Expected no active sessions, got %d", tr.ActiveSessions())
	}
}

func TestEncoderCommand(t *testing.T) {
	tr := New(Options{EncoderPath: "/usr/bin/oggenc"})

	got := tr.EncoderCommand(96)
	want := []string{"/usr/bin/oggenc", "-r", "-Q", "-b", "96", "-"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("EncoderCommand(96) = %v, want %v", got, want)
	}
}

func TestTranscodeUnsupportedFormat(t *testing.T) {
	tr, dir := newFakeTranscoder(t, "touch "+"\"$0.ran\"; "+catLastArg, catStdin)

	var sink bytes.Buffer
	err := tr.Transcode(context.Background(), Request{Filename: "/music/song.xyz", BitrateKbps: 64}, &sink)

	var sge *StreamGenerationError
	if !errors.As(err, &sge) {
		t.Fatalf("Expected *StreamGenerationError, got %T: %v", err, err)
	}
	if !errors.Is(err, decoder.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if sink.Len() != 0 {
		t.Errorf("Expected empty sink, got %d bytes", sink.Len())
	}
	if _, err := os.Stat(filepath.Join(dir, "fake-decoder.ran")); err == nil {
		t.Error("Decoder was started for an unsupported format")
	}
}

func TestTranscodeMissingEncoder(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	dec := writeScript(t, dir, "fake-decoder", catLastArg)

	tr := New(Options{
		EncoderPath: filepath.Join(dir, "no-such-encoder"),
		Decoders:    decoder.NewSelector(map[string]decoder.Spec{"flac": {Path: dec}}),
	})

	if err := tr.Check("a.flac"); !errors.Is(err, ErrEncoderMissing) {
		t.Errorf("Check() = %v, want ErrEncoderMissing", err)
	}

	err := tr.Transcode(context.Background(), Request{Filename: "a.flac", BitrateKbps: 64}, io.Discard)
	var sge *StreamGenerationError
	if !errors.As(err, &sge) || !errors.Is(err, ErrEncoderMissing) {
		t.Fatalf("Expected StreamGenerationError wrapping ErrEncoderMissing, got %v", err)
	}
	if sge.Hint == "" {
		t.Error("Expected an install hint")
	}
}

func TestTranscodeMissingDecoder(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	enc := writeScript(t, dir, "fake-encoder", catStdin)

	tr := New(Options{
		EncoderPath: enc,
		Decoders: decoder.NewSelector(map[string]decoder.Spec{
			"flac": {Path: filepath.Join(dir, "no-such-decoder"), Package: "flac"},
		}),
	})

	err := tr.Check("a.flac")
	if !errors.Is(err, decoder.ErrDecoderMissing) {
		t.Errorf("Check() = %v, want ErrDecoderMissing", err)
	}
}

func TestTranscodeInvalidBitrate(t *testing.T) {
	tr, _ := newFakeTranscoder(t, catLastArg, catStdin)

	err := tr.Transcode(context.Background(), Request{Filename: "a.flac", BitrateKbps: 0}, io.Discard)
	var sge *StreamGenerationError
	if !errors.As(err, &sge) {
		t.Errorf("Expected *StreamGenerationError, got %v", err)
	}
}

func TestTranscodeBuffered(t *testing.T) {
	tr, dir := newFakeTranscoder(t, catLastArg, catStdin)

	data := bytes.Repeat([]byte("pcm-frame-"), 3000)
	input := filepath.Join(dir, "track one.flac")
	if err := os.WriteFile(input, data, 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	rec := httptest.NewRecorder()
	err := tr.Transcode(context.Background(), Request{Filename: input, BitrateKbps: 8192, Buffered: true}, rec)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}

	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(data)) {
		t.Errorf("Expected Content-Length %d, got %q", len(data), got)
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("Body differs from input (%d vs %d bytes)", rec.Body.Len(), len(data))
	}
	if tr.ActiveSessions() != 0 {
		t.Errorf("Expected no active sessions, got %d", tr.ActiveSessions())
	}
}

func TestTranscodeStreaming(t *testing.T) {
	tr, dir := newFakeTranscoder(t, catLastArg, catStdin)

	data := bytes.Repeat([]byte{0xAB, 0xCD}, 20000)
	input := filepath.Join(dir, `it's "quoted"; $(echo no).flac`)
	if err := os.WriteFile(input, data, 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	rec := httptest.NewRecorder()
	err := tr.Transcode(context.Background(), Request{Filename: input, BitrateKbps: 8192}, rec)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}

	if rec.Header().Get("Content-Length") != "" {
		t.Error("Streaming responses must not set Content-Length")
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("Body differs from input (%d vs %d bytes)", rec.Body.Len(), len(data))
	}
}

func TestTranscodeEncoderFailureBuffered(t *testing.T) {
	tr, dir := newFakeTranscoder(t, catLastArg, "cat >/dev/null; echo boom >&2; exit 3")

	input := filepath.Join(dir, "a.flac")
	if err := os.WriteFile(input, []byte("data"), 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	var sink bytes.Buffer
	err := tr.Transcode(context.Background(), Request{Filename: input, BitrateKbps: 64, Buffered: true}, &sink)

	var sge *StreamGenerationError
	if !errors.As(err, &sge) {
		t.Fatalf("Expected *StreamGenerationError, got %v", err)
	}
	if sink.Len() != 0 {
		t.Errorf("Expected nothing written, got %d bytes", sink.Len())
	}
}

func TestTranscodeEncoderFailureStreaming(t *testing.T) {
	tr, dir := newFakeTranscoder(t, catLastArg, "cat; echo boom >&2; exit 3")

	data := bytes.Repeat([]byte("ogg"), 1000)
	input := filepath.Join(dir, "b.flac")
	if err := os.WriteFile(input, data, 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	failed := metrics.StreamsTotal.WithLabelValues(modeStreaming, "error")
	succeeded := metrics.StreamsTotal.WithLabelValues(modeStreaming, "success")
	failedBefore, succeededBefore := testutil.ToFloat64(failed), testutil.ToFloat64(succeeded)

	var sink bytes.Buffer
	if err := tr.Transcode(context.Background(), Request{Filename: input, BitrateKbps: 8192}, &sink); err != nil {
		t.Fatalf("Streaming keeps what was sent, expected nil error, got %v", err)
	}
	if !bytes.Equal(sink.Bytes(), data) {
		t.Errorf("Expected the encoder output to be relayed, got %d bytes", sink.Len())
	}

	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("Expected the streaming error counter to increase by 1, got %v", got)
	}
	if got := testutil.ToFloat64(succeeded) - succeededBefore; got != 0 {
		t.Errorf("A failed encoder must not count as success, counter moved by %v", got)
	}
}

func TestTranscodeClientDisconnect(t *testing.T) {
	tr, dir := newFakeTranscoder(t, `echo $$ > "$0.pid"; exec cat /dev/zero`, `echo $$ > "$0.pid"; exec cat`)

	sink := &failingWriter{limit: 1}
	start := time.Now()
	err := tr.Transcode(context.Background(), Request{Filename: "endless.flac", BitrateKbps: 8192}, sink)
	if err != nil {
		t.Fatalf("Disconnect should not be an error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Teardown took %v", elapsed)
	}
	if sink.writes != 2 {
		t.Errorf("Expected no writes after the failure, got %d", sink.writes)
	}
	if tr.ActiveSessions() != 0 {
		t.Errorf("Expected no active sessions, got %d", tr.ActiveSessions())
	}

	for _, name := range []string{"fake-decoder.pid", "fake-encoder.pid"} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			t.Fatalf("bad pid in %s: %q", name, raw)
		}
		if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
			t.Errorf("Process %d from %s still exists (kill 0: %v)", pid, name, err)
		}
	}
}

func TestCleanupStopsRunningPipelines(t *testing.T) {
	tr, _ := newFakeTranscoder(t, `exec cat /dev/zero`, catStdin)
	tr.shaper = &streaming.Shaper{Interval: 10 * time.Millisecond}

	done := make(chan error, 1)
	go func() {
		done <- tr.Transcode(context.Background(), Request{Filename: "endless.flac", BitrateKbps: 64}, io.Discard)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for tr.ActiveSessions() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if tr.ActiveSessions() != 1 {
		t.Fatalf("Expected 1 active session, got %d", tr.ActiveSessions())
	}

	tr.Cleanup()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil after Cleanup, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Transcode did not return after Cleanup")
	}
}

func TestStreamGenerationErrorMessage(t *testing.T) {
	err := &StreamGenerationError{
		Filename: "a.flac",
		Msg:      "pipeline unavailable",
		Hint:     `install "flac"`,
		Err:      decoder.ErrDecoderMissing,
	}

	msg := err.Error()
	for _, want := range []string{"a.flac", "pipeline unavailable", "decoder not installed", `install "flac"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, decoder.ErrDecoderMissing) {
		t.Error("Expected Unwrap to expose the cause")
	}
}
