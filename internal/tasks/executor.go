package tasks

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/strategies"
)

// Runner retrieves a single candidate.
type Runner interface {
	Run(ctx context.Context, candidate models.SourceCandidate) models.RetrievalResult
}

// ExecutorOpts configures an [Executor].
type ExecutorOpts struct {
	Strategies  []strategies.Strategy
	ScratchRoot string          // Parent of per-attempt scratch directories, defaults to os.TempDir()
	Recorder    AttemptRecorder // Optional
	Logger      *log.Logger
}

// Executor runs the strategy chain for one candidate, stopping at the first success.
type Executor struct {
	strategies  []strategies.Strategy
	scratchRoot string
	recorder    AttemptRecorder
	logger      *log.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(opts ExecutorOpts) *Executor {
	if opts.ScratchRoot == "" {
		opts.ScratchRoot = os.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Executor{
		strategies:  opts.Strategies,
		scratchRoot: opts.ScratchRoot,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
	}
}

// Run tries every strategy in order.
//
// Each attempt gets its own scratch directory, removed when the attempt fails.
// On success the caller owns result.ScratchDir.
func (e *Executor) Run(ctx context.Context, candidate models.SourceCandidate) models.RetrievalResult {
	if len(e.strategies) == 0 {
		return models.Failure(fmt.Errorf("%w: no retrieval strategies configured", shared.ErrInvalidConfig), false)
	}
	if err := os.MkdirAll(e.scratchRoot, 0755); err != nil {
		return models.Failure(fmt.Errorf("%w: scratch root %s: %v", shared.ErrLocalIO, e.scratchRoot, err), false)
	}

	var last models.RetrievalResult
	retryable := false
	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return models.Failure(fmt.Errorf("%w: %v", shared.ErrTransientNetwork, err), true)
		}

		dir, err := os.MkdirTemp(e.scratchRoot, "songdl-"+s.Name()+"-")
		if err != nil {
			return models.Failure(fmt.Errorf("%w: create scratch dir: %v", shared.ErrLocalIO, err), false)
		}

		res, status := e.attempt(ctx, s, candidate, dir)
		e.record(ctx, candidate, s.Name(), status, res)

		if res.OK {
			e.logger.Info("retrieved", "candidate", candidate.Identifier, "strategy", s.Name())
			return res.WithScratch(dir)
		}

		e.logger.Warn("strategy failed", "candidate", candidate.Identifier, "strategy", s.Name(), "error", res.Err)
		os.RemoveAll(dir)
		last = res
		retryable = retryable || res.Retryable
	}

	return models.Failure(fmt.Errorf("all %d strategies failed for %s: %w", len(e.strategies), candidate.Identifier, last.Err), retryable)
}

// attempt invokes s, converting a panic into a retryable failure.
func (e *Executor) attempt(ctx context.Context, s strategies.Strategy, c models.SourceCandidate, dir string) (res models.RetrievalResult, status AttemptStatus) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("strategy panicked", "candidate", c.Identifier, "strategy", s.Name(), "panic", r)
			res = models.Failure(fmt.Errorf("strategy %s panicked: %v", s.Name(), r), true)
			status = AttemptPanicked
		}
	}()

	res = s.Attempt(ctx, c, dir)
	if res.OK && !shared.NonEmptyFile(res.PayloadPath) {
		res = models.Failure(fmt.Errorf("%w: strategy %s reported an empty payload", shared.ErrNotFound, s.Name()), true)
	}
	if res.OK {
		return res, AttemptSucceeded
	}
	if res.Err == nil {
		res.Err = fmt.Errorf("strategy %s failed", s.Name())
	}
	return res, AttemptFailed
}

func (e *Executor) record(ctx context.Context, c models.SourceCandidate, strategy string, status AttemptStatus, res models.RetrievalResult) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordAttempt(ctx, AttemptRecord{
		BatchID:   BatchIDFromContext(ctx),
		Item:      itemFromContext(ctx),
		Candidate: c.Identifier,
		Strategy:  strategy,
		Status:    status,
		Message:   res.Error(),
	})
}
