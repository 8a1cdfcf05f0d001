package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/audio"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
)

const defaultMaxAttempts = 3

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default [Sleeper].
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Window is a closed range of durations sampled uniformly.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Pick maps r in [0, 1) onto the window.
func (w Window) Pick(r float64) time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	return w.Min + time.Duration(float64(w.Max-w.Min)*r)
}

// Tagger writes metadata into a finished file.
type Tagger interface {
	Tag(path string, item models.CatalogItem) error
}

// ProcessorOpts configures a [Processor].
type ProcessorOpts struct {
	Locator      services.Locator
	Executor     Runner
	Tagger       Tagger // Optional
	MaxAttempts  int
	SearchSuffix string
	Backoff      Window // Between attempts
	Pause        Window // After each download
	Sleep        Sleeper
	Rand         func() float64
	Logger       *log.Logger
}

// Processor drives one catalog item from lookup to a file at its canonical path.
type Processor struct {
	locator     services.Locator
	executor    Runner
	tagger      Tagger
	maxAttempts int
	suffix      string
	backoff     Window
	pause       Window
	sleep       Sleeper
	rand        func() float64
	logger      *log.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(opts ProcessorOpts) *Processor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Processor{
		locator:     opts.Locator,
		executor:    opts.Executor,
		tagger:      opts.Tagger,
		maxAttempts: opts.MaxAttempts,
		suffix:      opts.SearchSuffix,
		backoff:     opts.Backoff,
		pause:       opts.Pause,
		sleep:       opts.Sleep,
		rand:        opts.Rand,
		logger:      opts.Logger,
	}
}

// MaxAttempts is the lookup budget per item.
func (p *Processor) MaxAttempts() int { return p.maxAttempts }

// DestPath returns where item is written under outputDir.
func DestPath(outputDir string, item models.CatalogItem) string {
	return shared.OutputPath(outputDir, item.Title, item.Artist, audio.CanonicalExt)
}

// Process downloads item into outputDir.
//
// An existing destination file is skipped without any lookup. Exhausting the
// attempt budget yields [models.GaveUp] with a nil error; a non-retryable
// failure yields [models.GaveUp] with that error.
func (p *Processor) Process(ctx context.Context, item models.CatalogItem, outputDir string) (models.ItemOutcome, error) {
	dest := DestPath(outputDir, item)
	logger := p.logger.With("item", item.String())

	if shared.FileExists(dest) {
		logger.Info("already downloaded, skipping", "path", dest)
		return models.SkippedExisting, nil
	}

	ctx = withItem(ctx, item)
	query := item.Query(p.suffix)

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.GaveUp, err
		}

		candidates := p.locator.Locate(ctx, query)
		if len(candidates) == 0 {
			logger.Warn("no candidates found", "query", query, "attempt", attempt)
		}

		for _, c := range candidates {
			res := p.executor.Run(ctx, c)
			if res.OK {
				return p.finish(ctx, logger, item, res, dest)
			}
			if !res.Retryable {
				logger.Error("giving up on item", "candidate", c.Identifier, "error", res.Err)
				return models.GaveUp, res.Err
			}
		}

		if attempt < p.maxAttempts {
			delay := p.backoff.Pick(p.rand())
			logger.Info("retrying after backoff", "attempt", attempt, "delay", delay)
			if err := p.sleep(ctx, delay); err != nil {
				return models.GaveUp, err
			}
		}
	}

	logger.Error("all attempts exhausted", "attempts", p.maxAttempts)
	return models.GaveUp, nil
}

// finish moves the payload into place, releases the scratch directory and tags the file.
func (p *Processor) finish(ctx context.Context, logger *log.Logger, item models.CatalogItem, res models.RetrievalResult, dest string) (models.ItemOutcome, error) {
	defer os.RemoveAll(res.ScratchDir)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return models.GaveUp, fmt.Errorf("%w: %v", shared.ErrLocalIO, err)
	}
	if err := shared.MoveFile(res.PayloadPath, dest); err != nil {
		logger.Error("failed to move payload", "from", res.PayloadPath, "to", dest, "error", err)
		return models.GaveUp, err
	}

	if p.tagger != nil {
		if err := p.tagger.Tag(dest, item); err != nil {
			logger.Warn("failed to tag file", "path", dest, "error", err)
		}
	}
	logger.Info("downloaded", "path", dest)

	if err := p.sleep(ctx, p.pause.Pick(p.rand())); err != nil {
		logger.Debug("pause interrupted", "error", err)
	}
	return models.Downloaded, nil
}
