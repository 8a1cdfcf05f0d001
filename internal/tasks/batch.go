package tasks

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

// BatchState is shared between the worker and the presentation layer.
type BatchState struct {
	mu        sync.Mutex
	cancelled bool
	current   int
	total     int
	status    string
}

// Cancel asks the batch to stop before the next item.
func (s *BatchState) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Cancelled reports whether [BatchState.Cancel] was called since the last reset.
func (s *BatchState) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Progress returns the number of finished items and the batch size.
func (s *BatchState) Progress() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.total
}

// Status returns the last status message.
func (s *BatchState) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Reset clears the cancel flag and starts counting a batch of total items.
func (s *BatchState) Reset(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = false
	s.current = 0
	s.total = total
	s.status = ""
}

// begin starts counting a batch of total items. The cancel flag is kept.
func (s *BatchState) begin(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = 0
	s.total = total
}

func (s *BatchState) advance(current int, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = current
	s.status = status
}

func (s *BatchState) setStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// ItemProcessor processes a single item. [Processor] is the production implementation.
type ItemProcessor interface {
	Process(ctx context.Context, item models.CatalogItem, outputDir string) (models.ItemOutcome, error)
}

// Orchestrator processes a batch strictly sequentially.
type Orchestrator struct {
	processor   ItemProcessor
	maxAttempts int
	state       *BatchState
	logger      *log.Logger
}

// NewOrchestrator creates an Orchestrator. A nil state allocates a fresh one.
func NewOrchestrator(p ItemProcessor, state *BatchState, logger *log.Logger) *Orchestrator {
	if state == nil {
		state = &BatchState{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	attempts := defaultMaxAttempts
	if mp, ok := p.(interface{ MaxAttempts() int }); ok {
		attempts = mp.MaxAttempts()
	}
	return &Orchestrator{processor: p, maxAttempts: attempts, state: state, logger: logger}
}

// State returns the shared batch state.
func (o *Orchestrator) State() *BatchState {
	return o.state
}

// RunBatch processes items in order into outputDir.
//
// The cancel flag is checked before every item; a cancelled batch returns the
// partial summary with Cancelled set. RunBatch does not clear the flag, callers
// reset the state before starting a new invocation. Only an uncreatable output
// directory is returned as an error.
func (o *Orchestrator) RunBatch(ctx context.Context, items []models.CatalogItem, outputDir string, progress chan<- ProgressUpdate) (*models.BatchSummary, error) {
	total := len(items)
	o.state.begin(total)

	summary := &models.BatchSummary{ID: BatchIDFromContext(ctx), Total: total}
	if summary.ID == "" {
		summary.ID = shared.GenerateID()
		ctx = WithBatchID(ctx, summary.ID)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory %s: %v", shared.ErrLocalIO, outputDir, err)
	}

	sendProgress(progress, prepareBatchUpdate(total, outputDir))

	for i, item := range items {
		if o.state.Cancelled() || ctx.Err() != nil {
			return o.cancelled(summary, progress), nil
		}

		step := i + 1
		start := downloadItemUpdate(step, total, item)
		o.state.setStatus(start.Message)
		sendProgress(progress, start)

		job := models.NewDownloadJob(item, o.maxAttempts)
		outcome, err := o.process(ctx, job, outputDir)
		summary.Record(outcome)

		done := itemDoneUpdate(step, total, item, outcome, err)
		o.state.advance(step, done.Message)
		sendProgress(progress, done)
	}

	o.logger.Info("batch finished", "batch", summary.ID, "succeeded", summary.Succeeded, "skipped", summary.Skipped, "failed", summary.Failed)
	sendProgress(progress, batchDoneUpdate(summary))
	return summary, nil
}

// process runs one job, converting a panic into a failure.
func (o *Orchestrator) process(ctx context.Context, job *models.DownloadJob, outputDir string) (outcome models.ItemOutcome, err error) {
	if terr := job.Transition(models.JobInProgress); terr != nil {
		return models.GaveUp, terr
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("item panicked", "item", job.Item.String(), "panic", r)
			outcome, err = models.GaveUp, fmt.Errorf("panic while processing %s: %v", job.Item, r)
		}
		if terr := job.Transition(outcome.Status()); terr != nil {
			o.logger.Error("invalid job transition", "item", job.Item.String(), "error", terr)
		}
	}()

	return o.processor.Process(ctx, job.Item, outputDir)
}

func (o *Orchestrator) cancelled(summary *models.BatchSummary, progress chan<- ProgressUpdate) *models.BatchSummary {
	summary.Cancelled = true
	update := batchCancelledUpdate(summary)
	o.state.setStatus(update.Message)
	o.logger.Warn("batch cancelled", "batch", summary.ID, "processed", summary.Processed(), "total", summary.Total)
	sendProgress(progress, update)
	return summary
}
