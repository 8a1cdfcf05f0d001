package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Encoder re-encodes an audio file into the canonical codec at a fixed bitrate.
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath, bitrate string) error
}

// FFmpegEncoder shells out to ffmpeg with the LAME encoder.
type FFmpegEncoder struct {
	Path string
}

// NewFFmpegEncoder creates an encoder for the ffmpeg binary at path (or on PATH when empty).
func NewFFmpegEncoder(path string) *FFmpegEncoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegEncoder{Path: path}
}

// Args returns the ffmpeg argument list for one conversion.
func (e *FFmpegEncoder) Args(inputPath, outputPath, bitrate string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-codec:a", "libmp3lame",
		"-b:a", bitrate,
		outputPath,
	}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, inputPath, outputPath, bitrate string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, e.Args(inputPath, outputPath, bitrate)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}
