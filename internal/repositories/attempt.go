package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/mattn/go-sqlite3"
)

const attemptColumns = `id, batch_id, item_key, title, artist, candidate, strategy, status, message, created_at`

// AttemptRepository is the append-only log of retrieval attempts.
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new AttemptRepository with the given database connection
func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Append inserts an attempt, filling in ID, item key and timestamp when unset.
func (r *AttemptRepository) Append(a *models.Attempt) error {
	if a.BatchID == "" {
		return fmt.Errorf("validation failed: batch id is required")
	}
	if a.Status == "" {
		return fmt.Errorf("validation failed: status is required")
	}
	if a.ID == "" {
		a.ID = shared.GenerateID()
	}
	if a.ItemKey == "" {
		a.ItemKey = shared.NormalizeTrackKey(a.Title, a.Artist)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO attempts (` + attemptColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		a.ID,
		a.BatchID,
		a.ItemKey,
		a.Title,
		a.Artist,
		a.Candidate,
		a.Strategy,
		a.Status,
		a.Message,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

// ListByBatch returns every attempt of a batch in insertion order.
func (r *AttemptRepository) ListByBatch(batchID string) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE batch_id = ? ORDER BY created_at ASC, rowid ASC`
	rows, err := r.db.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// ListByItem returns every attempt recorded for a title/artist pair, newest first.
func (r *AttemptRepository) ListByItem(title, artist string) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE item_key = ? ORDER BY created_at DESC, rowid DESC`
	rows, err := r.db.Query(query, shared.NormalizeTrackKey(title, artist))
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// Recent returns the newest limit attempts across all batches.
func (r *AttemptRepository) Recent(limit int) ([]*models.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + attemptColumns + ` FROM attempts ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// StrategyStats counts successes and failures per strategy, most used first.
func (r *AttemptRepository) StrategyStats() ([]models.StrategyStat, error) {
	query := `
		SELECT
			strategy,
			SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'succeeded' THEN 0 ELSE 1 END)
		FROM attempts
		GROUP BY strategy
		ORDER BY COUNT(*) DESC, strategy ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy stats: %w", err)
	}
	defer rows.Close()

	var stats []models.StrategyStat
	for rows.Next() {
		var s models.StrategyStat
		if err := rows.Scan(&s.Strategy, &s.Succeeded, &s.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan strategy stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Summaries aggregates the attempt log per batch, newest batch first.
func (r *AttemptRepository) Summaries(limit int) ([]models.AttemptSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT
			batch_id,
			COUNT(DISTINCT item_key),
			COUNT(*),
			SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'succeeded' THEN 0 ELSE 1 END),
			MIN(created_at),
			MAX(created_at)
		FROM attempts
		GROUP BY batch_id
		ORDER BY MAX(created_at) DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.AttemptSummary
	for rows.Next() {
		var s models.AttemptSummary
		var first, last string
		if err := rows.Scan(&s.BatchID, &s.Items, &s.Attempts, &s.Succeeded, &s.Failed, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan attempt summary: %w", err)
		}
		s.FirstAt = parseTimestamp(first)
		s.LastAt = parseTimestamp(last)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func scanAttempts(rows *sql.Rows) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	for rows.Next() {
		var a models.Attempt
		err := rows.Scan(
			&a.ID,
			&a.BatchID,
			&a.ItemKey,
			&a.Title,
			&a.Artist,
			&a.Candidate,
			&a.Strategy,
			&a.Status,
			&a.Message,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}
	return attempts, nil
}

// parseTimestamp reads the text form go-sqlite3 writes for time values.
// Aggregates such as MIN and MAX lose the column type, so they come back as strings.
func parseTimestamp(s string) time.Time {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
