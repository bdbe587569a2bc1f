package artwork

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/dhowden/tag"
	"github.com/disintegration/imaging"

	"jukebox/internal/logging"
)

const (
	// DefaultSize is the thumbnail edge length used when none is requested.
	DefaultSize = 256
	// MinSize and MaxSize bound the requested edge length.
	MinSize = 32
	MaxSize = 1024

	jpegQuality = 85
)

// ErrNoArtwork is returned when a file carries no embedded picture.
var ErrNoArtwork = errors.New("no embedded artwork")

// ClampSize maps a requested size into [MinSize, MaxSize]. Zero or negative
// means DefaultSize.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// Thumbnail extracts the embedded cover picture of the audio file at path
// and returns it as a JPEG that fits in a size x size box.
func Thumbnail(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, ErrNoArtwork
		}
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}

	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, ErrNoArtwork
	}
	logging.Debug("Found %s artwork (%d bytes) in %s", pic.MIMEType, len(pic.Data), path)

	img, err := imaging.Decode(bytes.NewReader(pic.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork in %s: %w", path, err)
	}

	size = ClampSize(size)
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
