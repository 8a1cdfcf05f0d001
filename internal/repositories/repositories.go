package repositories

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/tasks"
)

// HistoryRecorder implements [tasks.AttemptRecorder] and [tasks.BatchRecorder]
// on top of the attempt and batch repositories.
//
// Write failures are logged and dropped so history never interrupts a download.
type HistoryRecorder struct {
	attempts *AttemptRepository
	batches  *BatchRepository
	logger   *log.Logger
}

// NewHistoryRecorder creates a HistoryRecorder backed by db.
func NewHistoryRecorder(db *sql.DB, logger *log.Logger) *HistoryRecorder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &HistoryRecorder{
		attempts: NewAttemptRepository(db),
		batches:  NewBatchRepository(db),
		logger:   logger.WithPrefix("history"),
	}
}

// RecordAttempt appends rec to the attempt log.
func (h *HistoryRecorder) RecordAttempt(ctx context.Context, rec tasks.AttemptRecord) {
	a := &models.Attempt{
		BatchID:   rec.BatchID,
		Title:     rec.Item.Title,
		Artist:    rec.Item.Artist,
		Candidate: rec.Candidate,
		Strategy:  rec.Strategy,
		Status:    string(rec.Status),
		Message:   rec.Message,
	}
	if err := h.attempts.Append(a); err != nil {
		h.logger.Warn("failed to record attempt", "strategy", rec.Strategy, "error", err)
	}
}

// RecordBatch saves the batch row.
func (h *HistoryRecorder) RecordBatch(ctx context.Context, rec tasks.BatchRecord) {
	finished := rec.FinishedAt
	b := &models.BatchRun{
		Summary:      rec.Summary,
		PlaylistID:   rec.PlaylistID,
		PlaylistName: rec.PlaylistName,
		OutputDir:    rec.OutputDir,
		StartedAt:    rec.StartedAt,
	}
	if !finished.IsZero() {
		b.FinishedAt = &finished
	}
	if err := h.batches.Save(b); err != nil {
		h.logger.Warn("failed to record batch", "batch", rec.Summary.ID, "error", err)
	}
}

// Attempts returns the underlying attempt repository.
func (h *HistoryRecorder) Attempts() *AttemptRepository { return h.attempts }

// Batches returns the underlying batch repository.
func (h *HistoryRecorder) Batches() *BatchRepository { return h.batches }
