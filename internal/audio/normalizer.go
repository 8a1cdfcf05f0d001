package audio

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

const (
	CanonicalMIME    = "audio/mpeg"
	CanonicalExt     = "mp3"
	CanonicalBitrate = "192k"
)

// Detect returns the MIME type of the file at path.
func Detect(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: detect %s: %v", shared.ErrLocalIO, path, err)
	}
	return m.String(), nil
}

// IsCanonical reports whether the file at path is already in the canonical container.
func IsCanonical(path string) bool {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return m.Is(CanonicalMIME)
}

// Normalizer converts arbitrary audio payloads into the canonical codec.
type Normalizer struct {
	encoder Encoder
	bitrate string
	logger  *log.Logger
}

// NewNormalizer creates a [Normalizer] that encodes with enc at bitrate.
func NewNormalizer(enc Encoder, bitrate string, logger *log.Logger) *Normalizer {
	if bitrate == "" {
		bitrate = CanonicalBitrate
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Normalizer{encoder: enc, bitrate: bitrate, logger: logger}
}

// Normalize writes a canonical copy of inputPath to outputPath.
//
// Canonical input is relocated rather than re-encoded. The input is left in
// place on re-encode; callers own its removal.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string) error {
	if !shared.NonEmptyFile(inputPath) {
		return fmt.Errorf("%w: input %s is missing or empty", shared.ErrNormalization, inputPath)
	}

	mime, err := Detect(inputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNormalization, err)
	}
	if mime == CanonicalMIME {
		if inputPath == outputPath {
			return nil
		}
		n.logger.Debug("input already canonical, relocating", "input", inputPath)
		return shared.MoveFile(inputPath, outputPath)
	}

	if n.encoder == nil {
		return fmt.Errorf("%w: no encoder configured", shared.ErrNormalization)
	}

	n.logger.Debug("encoding", "input", inputPath, "from", mime, "output", outputPath, "bitrate", n.bitrate)
	if err := n.encoder.Encode(ctx, inputPath, outputPath, n.bitrate); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("%w: %v", shared.ErrNormalization, err)
	}

	if !shared.NonEmptyFile(outputPath) {
		os.Remove(outputPath)
		return fmt.Errorf("%w: encoder produced no output", shared.ErrNormalization)
	}
	return nil
}
