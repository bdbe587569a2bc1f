package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"jukebox/internal/decoder"
	"jukebox/internal/logging"
	"jukebox/internal/metrics"
)

// session is one running decoder | encoder pipeline. It is owned by the
// goroutine serving the request; close must be called on every path.
type session struct {
	id       uint64
	filename string
	bitrate  int
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	dec *exec.Cmd
	enc *exec.Cmd

	// encOut is the read end of the encoder's stdout in streaming mode.
	encOut *os.File
	// encoded collects encoder output in buffered mode.
	encoded bytes.Buffer

	decStderr bytes.Buffer
	encStderr bytes.Buffer

	encDone chan struct{}
	encErr  error

	decWaited bool
	decErr    error

	bytesWritten int64
}

// start launches both processes. On error nothing is left running and no
// descriptor is left open.
func (t *Transcoder) start(ctx context.Context, req Request, spec decoder.Spec) (*session, error) {
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		filename: req.Filename,
		bitrate:  req.BitrateKbps,
		started:  time.Now(),
		ctx:      sessCtx,
		cancel:   cancel,
		encDone:  make(chan struct{}),
	}

	decArgv := spec.Command(req.Filename)
	encArgv := t.EncoderCommand(req.BitrateKbps)

	sess.dec = t.command(sessCtx, decArgv)
	sess.enc = t.command(sessCtx, encArgv)
	sess.dec.Stderr = &sess.decStderr
	sess.enc.Stderr = &sess.encStderr

	pcmR, pcmW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create decoder pipe: %w", err)
	}
	sess.dec.Stdout = pcmW
	sess.enc.Stdin = pcmR

	var outW *os.File
	if req.Buffered {
		sess.enc.Stdout = &sess.encoded
	} else {
		sess.encOut, outW, err = os.Pipe()
		if err != nil {
			closeAll(pcmR, pcmW)
			cancel()
			return nil, fmt.Errorf("failed to create encoder pipe: %w", err)
		}
		sess.enc.Stdout = outW
	}

	if err := sess.dec.Start(); err != nil {
		closeAll(pcmR, pcmW, outW, sess.encOut)
		cancel()
		return nil, fmt.Errorf("failed to start decoder %s: %w", decArgv[0], err)
	}
	metrics.TranscoderProcesses.Inc()
	// The decoder holds its own copy; the encoder must see EOF when it exits.
	closeAll(pcmW)

	if err := sess.enc.Start(); err != nil {
		closeAll(pcmR, outW, sess.encOut)
		cancel()
		sess.waitDecoder()
		return nil, fmt.Errorf("failed to start encoder %s: %w", encArgv[0], err)
	}
	metrics.TranscoderProcesses.Inc()
	closeAll(pcmR, outW)

	go func() {
		sess.encErr = sess.enc.Wait()
		metrics.TranscoderProcesses.Dec()
		close(sess.encDone)
	}()

	logging.Debug("Started pipeline for %s: %v | %v", req.Filename, decArgv, encArgv)
	return sess, nil
}

// command builds a process bound to ctx. Cancellation sends SIGTERM and
// escalates to SIGKILL after the grace period.
func (t *Transcoder) command(ctx context.Context, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = t.killGrace
	return cmd
}

// encoderExited reports whether the encoder process has terminated.
func (s *session) encoderExited() bool {
	select {
	case <-s.encDone:
		return true
	default:
		return false
	}
}

func (s *session) waitDecoder() error {
	if !s.decWaited {
		s.decErr = s.dec.Wait()
		s.decWaited = true
		metrics.TranscoderProcesses.Dec()
	}
	return s.decErr
}

// close terminates both processes if they are still running, reaps them
// and releases the remaining descriptors.
// encoderFailed reports whether the encoder has exited with an error.
// encErr is only read once encDone is closed.
func (s *session) encoderFailed() bool {
	return s.encoderExited() && s.encErr != nil
}

func (s *session) close() {
	s.cancel()
	<-s.encDone
	s.waitDecoder()
	if s.encOut != nil {
		closeAll(s.encOut)
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			logging.Debug("close %s: %v", f.Name(), err)
		}
	}
}
