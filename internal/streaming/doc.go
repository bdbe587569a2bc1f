/*
Package streaming relays encoder output to HTTP clients at a bounded rate.

# Overview

A transcoder produces audio far faster than a listener consumes it. Copying
its output straight to the socket floods slow clients and wastes bandwidth
on tracks that are skipped after a few seconds. [Shaper] polls the source
on a fixed tick and only reads when the bytes already delivered fall below
the ceiling for the target bitrate:

	maxBytesPerSec = RateMultiplier * bitrateKbps * 1024 / 8

With the defaults (2x real time, 128 ticks per second, 8 KiB chunks) a
64 kbps stream is delivered at about 16 KiB/s and no stream ever exceeds
1 MiB/s.

# Basic Usage

	shaper := streaming.NewShaper()
	n, err := shaper.Shape(ctx, encoderStdout, w, 64, func() bool {
		select {
		case <-encoderDone:
			return true
		default:
			return false
		}
	})
	if errors.Is(err, streaming.ErrClientGone) {
		// terminate the encoder; this is not a server error
	}

# Termination

Shape stops when the exhaustion callback reports true and the read made
right after it returns no data. The callback is checked first so output
written between the previous read and the producer's exit is still
delivered.

# Non-blocking reads

Sources that implement SetReadDeadline (pipes returned by [os.Pipe] and
[os/exec.Cmd.StdoutPipe]) are read with a one millisecond deadline. A read
that times out counts as zero bytes. In-memory readers are read directly.

# Error Handling

	var (
		ErrClientGone     = errors.New("client disconnected")
		ErrStreamCanceled = errors.New("stream canceled")
	)

A sink write failure or a canceled context yields ErrClientGone. A context
that hits its deadline yields ErrStreamCanceled.
*/
package streaming
