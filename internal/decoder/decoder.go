package decoder

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"jukebox/internal/logging"
	"jukebox/internal/metrics"
)

var (
	// ErrUnsupportedFormat indicates that no decoder is registered for the
	// file's extension, or that the filename has no extension at all.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDecoderMissing indicates that a decoder is registered but its
	// binary is not present on the filesystem.
	ErrDecoderMissing = errors.New("decoder not installed")
)

// Spec is the command line used to decode one file format.
type Spec struct {
	// Path is the absolute path of the decoder binary.
	Path string
	// Args are the fixed flags passed before the filename.
	Args []string
	// Package names the distribution package that provides Path.
	Package string
}

// Command returns the full argument vector for decoding filename.
// The first element is the binary, the last is filename.
func (s Spec) Command(filename string) []string {
	argv := make([]string, 0, len(s.Args)+2)
	argv = append(argv, s.Path)
	argv = append(argv, s.Args...)
	return append(argv, filename)
}

// DefaultTable is the set of decoders known to the server.
var DefaultTable = map[string]Spec{
	"flac": {Path: "/usr/bin/flac", Args: []string{"-d", "-c", "--totally-silent"}, Package: "flac"},
	"mp3":  {Path: "/usr/bin/mpg123", Args: []string{"-s", "-q"}, Package: "mpg123"},
	"ogg":  {Path: "/usr/bin/oggdec", Args: []string{"-Q", "-o", "-"}, Package: "vorbis-tools"},
	"m4a":  {Path: "/usr/bin/faad", Args: []string{"-q", "-f", "2", "-w"}, Package: "faad"},
}

// Extension returns the lowercased text following the final '.' in filename.
func Extension(filename string) (string, error) {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 || idx == len(filename)-1 {
		return "", fmt.Errorf("%w: no extension in %q", ErrUnsupportedFormat, filename)
	}
	return strings.ToLower(filename[idx+1:]), nil
}

// Selector resolves decoders from a static table and remembers which
// extensions have already been reported as unavailable.
type Selector struct {
	table  map[string]Spec
	warned sync.Map // extension -> struct{}

	// statFn is replaced in tests.
	statFn func(string) (os.FileInfo, error)
}

// NewSelector creates a Selector over table. A nil table selects DefaultTable.
// The table is copied; later changes to the argument have no effect.
func NewSelector(table map[string]Spec) *Selector {
	if table == nil {
		table = DefaultTable
	}
	copied := make(map[string]Spec, len(table))
	for ext, spec := range table {
		copied[strings.ToLower(ext)] = spec
	}
	return &Selector{
		table:  copied,
		statFn: os.Stat,
	}
}

// Resolve returns the decoder for filename, or an error wrapping
// ErrUnsupportedFormat.
func (s *Selector) Resolve(filename string) (Spec, error) {
	ext, err := Extension(filename)
	if err != nil {
		return Spec{}, err
	}
	spec, ok := s.table[ext]
	if !ok {
		return Spec{}, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
	return spec, nil
}

// HasDecoder reports whether an extension is registered for filename.
// It does not check that the binary is installed.
func (s *Selector) HasDecoder(filename string) bool {
	_, err := s.Resolve(filename)
	return err == nil
}

// IsAvailable reports whether filename has a registered decoder whose
// binary exists. A missing binary is logged once per extension.
func (s *Selector) IsAvailable(filename string) bool {
	return s.Available(filename) == nil
}

// Available is IsAvailable with the reason. The error wraps
// ErrUnsupportedFormat or ErrDecoderMissing.
func (s *Selector) Available(filename string) error {
	spec, err := s.Resolve(filename)
	if err != nil {
		return err
	}
	if _, err := s.statFn(spec.Path); err == nil {
		return nil
	}

	ext, _ := Extension(filename)
	if _, already := s.warned.LoadOrStore(ext, struct{}{}); !already {
		logging.Warn("Decoder for .%s files not found at %s; install %q to play them", ext, spec.Path, spec.Package)
		metrics.DecoderUnavailableTotal.WithLabelValues(ext).Inc()
	}
	return fmt.Errorf("%w: %s (install %q)", ErrDecoderMissing, spec.Path, spec.Package)
}

// Extensions returns the registered extensions in no particular order.
func (s *Selector) Extensions() []string {
	exts := make([]string, 0, len(s.table))
	for ext := range s.table {
		exts = append(exts, ext)
	}
	return exts
}

// Lookup returns the decoder registered for ext (without the leading dot).
func (s *Selector) Lookup(ext string) (Spec, bool) {
	spec, ok := s.table[strings.ToLower(ext)]
	return spec, ok
}
