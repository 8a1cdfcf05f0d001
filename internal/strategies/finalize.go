package strategies

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/songdl/internal/audio"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

const normalizedName = "normalized." + audio.CanonicalExt

// partialSuffixes are left behind by interrupted downloads and never count as output.
var partialSuffixes = []string{".part", ".ytdl", ".tmp", ".temp"}

// collect returns the largest non-empty regular file in dir.
func collect(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: read scratch dir: %v", shared.ErrLocalIO, err)
	}

	var best string
	var bestSize int64
	for _, e := range entries {
		if !e.Type().IsRegular() || isPartial(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = filepath.Join(dir, e.Name()), info.Size()
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w: no output produced in %s", shared.ErrNotFound, dir)
	}
	return best, nil
}

func isPartial(name string) bool {
	for _, s := range partialSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// finalize locates the payload in scratchDir and makes sure it is canonical.
// A re-encoded intermediate is removed.
func finalize(ctx context.Context, n Normalizer, scratchDir string) models.RetrievalResult {
	in, err := collect(scratchDir)
	if err != nil {
		return fail(err)
	}

	if audio.IsCanonical(in) {
		return models.Success(in, audio.CanonicalMIME, scratchDir)
	}

	if n == nil {
		return fail(fmt.Errorf("%w: payload %s is not canonical and no normalizer is configured", shared.ErrNormalization, filepath.Base(in)))
	}

	out := filepath.Join(scratchDir, normalizedName)
	if in == out {
		moved := in + ".src"
		if err := os.Rename(in, moved); err != nil {
			return fail(fmt.Errorf("%w: %v", shared.ErrLocalIO, err))
		}
		in = moved
	}

	if err := n.Normalize(ctx, in, out); err != nil {
		return fail(err)
	}
	os.Remove(in)

	if !shared.NonEmptyFile(out) {
		return fail(fmt.Errorf("%w: normalized output is empty", shared.ErrNormalization))
	}
	return models.Success(out, audio.CanonicalMIME, scratchDir)
}
