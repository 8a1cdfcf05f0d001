package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

const batchColumns = `
	id, playlist_id, playlist_name, output_dir, total, succeeded,
	skipped, failed, cancelled, started_at, finished_at
`

// BatchRepository persists one row per batch run.
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new BatchRepository with the given database connection
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Save inserts a batch or replaces the row with the same ID.
func (r *BatchRepository) Save(b *models.BatchRun) error {
	if b.Summary.ID == "" {
		return fmt.Errorf("validation failed: batch id is required")
	}
	if b.OutputDir == "" {
		return fmt.Errorf("validation failed: output directory is required")
	}

	var finishedAt any
	if b.FinishedAt != nil {
		finishedAt = *b.FinishedAt
	}

	query := `INSERT OR REPLACE INTO batches (` + batchColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		b.Summary.ID,
		b.PlaylistID,
		b.PlaylistName,
		b.OutputDir,
		b.Summary.Total,
		b.Summary.Succeeded,
		b.Summary.Skipped,
		b.Summary.Failed,
		b.Summary.Cancelled,
		b.StartedAt,
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// Get retrieves a batch by ID.
func (r *BatchRepository) Get(id string) (*models.BatchRun, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = ?`
	b, err := scanBatch(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %s", shared.ErrNotFound, id)
	}
	return b, err
}

// List returns the newest limit batches.
func (r *BatchRepository) List(limit int) ([]*models.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY started_at DESC LIMIT ?`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.BatchRun
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*models.BatchRun, error) {
	var b models.BatchRun
	var finishedAt sql.NullTime
	err := row.Scan(
		&b.Summary.ID,
		&b.PlaylistID,
		&b.PlaylistName,
		&b.OutputDir,
		&b.Summary.Total,
		&b.Summary.Succeeded,
		&b.Summary.Skipped,
		&b.Summary.Failed,
		&b.Summary.Cancelled,
		&b.StartedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	if finishedAt.Valid {
		b.FinishedAt = &finishedAt.Time
	}
	return &b, nil
}
