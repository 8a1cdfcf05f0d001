package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: shared.MemoryDatabase})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestAttemptRepository(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	seed := func(t *testing.T, repo *AttemptRepository) {
		t.Helper()
		attempts := []*models.Attempt{
			{BatchID: "b1", Title: "Song", Artist: "Band", Strategy: "invidious", Status: "failed", Message: "mirror down", CreatedAt: base},
			{BatchID: "b1", Title: "Song", Artist: "Band", Strategy: "anonymous", Status: "succeeded", CreatedAt: base.Add(time.Second)},
			{BatchID: "b2", Title: "Other", Artist: "Band", Strategy: "invidious", Status: "succeeded", CreatedAt: base.Add(2 * time.Second)},
		}
		for _, a := range attempts {
			if err := repo.Append(a); err != nil {
				t.Fatalf("failed to append attempt: %v", err)
			}
		}
	}

	t.Run("Append", func(t *testing.T) {
		repo := NewAttemptRepository(setupTestDB(t))
		a := &models.Attempt{BatchID: "b1", Title: "  Song ", Artist: "BAND", Strategy: "direct", Status: "succeeded"}

		if err := repo.Append(a); err != nil {
			t.Fatalf("failed to append attempt: %v", err)
		}
		if a.ID == "" || a.CreatedAt.IsZero() {
			t.Error("expected ID and CreatedAt to be set")
		}
		if a.ItemKey != "song|band" {
			t.Errorf("ItemKey = %q, want song|band", a.ItemKey)
		}
	})

	t.Run("Append validation", func(t *testing.T) {
		repo := NewAttemptRepository(setupTestDB(t))
		if err := repo.Append(&models.Attempt{Status: "failed"}); err == nil {
			t.Error("expected error for missing batch id")
		}
		if err := repo.Append(&models.Attempt{BatchID: "b1"}); err == nil {
			t.Error("expected error for missing status")
		}
	})

	t.Run("ListByBatch", func(t *testing.T) {
		repo := NewAttemptRepository(setupTestDB(t))
		seed(t, repo)

		attempts, err := repo.ListByBatch("b1")
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(attempts) != 2 {
			t.Fatalf("expected 2 attempts, got %d", len(attempts))
		}
		if attempts[0].Strategy != "invidious" || attempts[1].Strategy != "anonymous" {
			t.Errorf("unexpected order: %s, %s", attempts[0].Strategy, attempts[1].Strategy)
		}
		if attempts[0].Message != "mirror down" || !attempts[0].CreatedAt.Equal(base) {
			t.Errorf("unexpected attempt: %+v", attempts[0])
		}

		empty, err := repo.ListByBatch("missing")
		if err != nil || len(empty) != 0 {
			t.Errorf("ListByBatch(missing) = %v, %v", empty, err)
		}
	})

	t.Run("ListByItem", func(t *testing.T) {
		repo := NewAttemptRepository(setupTestDB(t))
		seed(t, repo)

		attempts, err := repo.ListByItem("SONG", "band")
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(attempts) != 2 || attempts[0].Strategy != "anonymous" {
			t.Errorf("unexpected attempts: %+v", attempts)
		}
	})

	t.Run("Recent", func(t *testing.T) {
		repo := NewAttemptRepository(setupTestDB(t))
		seed(t, repo)

		attempts, err := repo.Recent(2)
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(attempts) != 2 || attempts[0].Title != "Other" {
			t.Errorf("unexpected attempts: %+v", attempts)
		}
	})

	t.Run("Summaries", func(t *testing.T) {
		repo := NewAttemptRepository(setupTestDB(t))
		seed(t, repo)

		summaries, err := repo.Summaries(10)
		if err != nil {
			t.Fatalf("failed to summarize attempts: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(summaries))
		}
		if summaries[0].BatchID != "b2" {
			t.Errorf("expected newest batch first, got %s", summaries[0].BatchID)
		}
		b1 := summaries[1]
		if b1.Items != 1 || b1.Attempts != 2 || b1.Succeeded != 1 || b1.Failed != 1 {
			t.Errorf("unexpected summary: %+v", b1)
		}
		if !b1.FirstAt.Equal(base) || !b1.LastAt.Equal(base.Add(time.Second)) {
			t.Errorf("unexpected range: %v to %v", b1.FirstAt, b1.LastAt)
		}
	})

	t.Run("StrategyStats", func(t *testing.T) {
		repo := NewAttemptRepository(setupTestDB(t))
		seed(t, repo)

		stats, err := repo.StrategyStats()
		if err != nil {
			t.Fatalf("failed to compute stats: %v", err)
		}
		if len(stats) != 2 {
			t.Fatalf("expected 2 strategies, got %d", len(stats))
		}
		inv := stats[0]
		if inv.Strategy != "invidious" || inv.Succeeded != 1 || inv.Failed != 1 || inv.SuccessRate() != 0.5 {
			t.Errorf("unexpected invidious stat: %+v", inv)
		}
		if stats[1].Strategy != "anonymous" || stats[1].Total() != 1 {
			t.Errorf("unexpected anonymous stat: %+v", stats[1])
		}
	})
}

func TestBatchRepository(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newRun := func(id string, offset time.Duration) *models.BatchRun {
		return &models.BatchRun{
			Summary:      models.BatchSummary{ID: id, Total: 3, Succeeded: 1, Skipped: 1, Failed: 1},
			PlaylistID:   "pl1",
			PlaylistName: "Road Trip",
			OutputDir:    "/music",
			StartedAt:    started.Add(offset),
		}
	}

	t.Run("Save and Get", func(t *testing.T) {
		repo := NewBatchRepository(setupTestDB(t))
		run := newRun("b1", 0)
		finished := started.Add(time.Minute)
		run.FinishedAt = &finished
		run.Summary.Cancelled = true

		if err := repo.Save(run); err != nil {
			t.Fatalf("failed to save batch: %v", err)
		}

		got, err := repo.Get("b1")
		if err != nil {
			t.Fatalf("failed to get batch: %v", err)
		}
		if got.Summary != run.Summary {
			t.Errorf("summary = %+v, want %+v", got.Summary, run.Summary)
		}
		if got.PlaylistName != "Road Trip" || !got.StartedAt.Equal(started) {
			t.Errorf("unexpected batch: %+v", got)
		}
		if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
			t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
		}
	})

	t.Run("Save replaces", func(t *testing.T) {
		repo := NewBatchRepository(setupTestDB(t))
		run := newRun("b1", 0)
		if err := repo.Save(run); err != nil {
			t.Fatalf("failed to save batch: %v", err)
		}
		run.Summary.Succeeded = 3
		if err := repo.Save(run); err != nil {
			t.Fatalf("failed to save batch again: %v", err)
		}

		got, err := repo.Get("b1")
		if err != nil {
			t.Fatalf("failed to get batch: %v", err)
		}
		if got.Summary.Succeeded != 3 || got.FinishedAt != nil {
			t.Errorf("unexpected batch: %+v", got)
		}
	})

	t.Run("Get not found", func(t *testing.T) {
		repo := NewBatchRepository(setupTestDB(t))
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Save validation", func(t *testing.T) {
		repo := NewBatchRepository(setupTestDB(t))
		if err := repo.Save(&models.BatchRun{OutputDir: "/music"}); err == nil {
			t.Error("expected error for missing id")
		}
		if err := repo.Save(&models.BatchRun{Summary: models.BatchSummary{ID: "b1"}}); err == nil {
			t.Error("expected error for missing output dir")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewBatchRepository(setupTestDB(t))
		for i, id := range []string{"old", "mid", "new"} {
			if err := repo.Save(newRun(id, time.Duration(i)*time.Hour)); err != nil {
				t.Fatalf("failed to save batch: %v", err)
			}
		}

		runs, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list batches: %v", err)
		}
		if len(runs) != 2 || runs[0].Summary.ID != "new" || runs[1].Summary.ID != "mid" {
			t.Errorf("unexpected batches: %+v", runs)
		}
	})
}

func TestHistoryRecorder(t *testing.T) {
	db := setupTestDB(t)
	h := NewHistoryRecorder(db, nil)
	ctx := context.Background()

	var _ tasks.AttemptRecorder = h
	var _ tasks.BatchRecorder = h

	item := models.CatalogItem{Title: "Song", Artist: "Band"}
	h.RecordAttempt(ctx, tasks.AttemptRecord{BatchID: "b1", Item: item, Candidate: "dQw4w9WgXcQ", Strategy: "invidious", Status: tasks.AttemptFailed, Message: "down"})
	h.RecordAttempt(ctx, tasks.AttemptRecord{BatchID: "b1", Item: item, Candidate: "dQw4w9WgXcQ", Strategy: "anonymous", Status: tasks.AttemptSucceeded})

	// Missing batch id is rejected by the repository and swallowed here.
	h.RecordAttempt(ctx, tasks.AttemptRecord{Item: item, Status: tasks.AttemptFailed})

	attempts, err := h.Attempts().ListByBatch("b1")
	if err != nil {
		t.Fatalf("failed to list attempts: %v", err)
	}
	if len(attempts) != 2 || attempts[0].Status != "failed" || attempts[1].Status != "succeeded" || attempts[0].Candidate != "dQw4w9WgXcQ" {
		t.Errorf("unexpected attempts: %+v", attempts)
	}

	start := time.Now().UTC().Truncate(time.Second)
	h.RecordBatch(ctx, tasks.BatchRecord{
		Summary:    models.BatchSummary{ID: "b1", Total: 1, Succeeded: 1},
		PlaylistID: "pl1",
		OutputDir:  "/music",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	})

	run, err := h.Batches().Get("b1")
	if err != nil {
		t.Fatalf("failed to get batch: %v", err)
	}
	if run.Summary.Succeeded != 1 || run.FinishedAt == nil {
		t.Errorf("unexpected batch: %+v", run)
	}
}
