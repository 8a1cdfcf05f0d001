package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/strategies"
	tu "github.com/desertthunder/songdl/internal/testing"
)

type fakeStrategy struct {
	name      string
	ok        bool
	empty     bool
	retryable bool
	panics    bool
	calls     int
	dirs      []string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(ctx context.Context, c models.SourceCandidate, dir string) models.RetrievalResult {
	f.calls++
	f.dirs = append(f.dirs, dir)
	if f.panics {
		panic(f.name + " exploded")
	}
	if !f.ok {
		return models.Failure(errors.New(f.name+" failed"), f.retryable)
	}
	path := filepath.Join(dir, "payload.mp3")
	data := tu.MP3Bytes
	if f.empty {
		data = nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return models.Failure(err, false)
	}
	return models.Success(path, "audio/mpeg", dir)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []AttemptRecord
}

func (r *fakeRecorder) RecordAttempt(ctx context.Context, rec AttemptRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *fakeRecorder) all() []AttemptRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AttemptRecord(nil), r.records...)
}

var testCandidate = models.SourceCandidate{Identifier: "dQw4w9WgXcQ", ProviderHint: "youtube"}

func asStrategies(fs ...*fakeStrategy) []strategies.Strategy {
	out := make([]strategies.Strategy, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}

func TestExecutorRun(t *testing.T) {
	t.Run("stops at first success", func(t *testing.T) {
		a := &fakeStrategy{name: "a", retryable: true}
		b := &fakeStrategy{name: "b", retryable: true}
		c := &fakeStrategy{name: "c", ok: true}
		d := &fakeStrategy{name: "d", ok: true}
		root := t.TempDir()

		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a, b, c, d), ScratchRoot: root})
		res := exec.Run(context.Background(), testCandidate)

		if !res.OK {
			t.Fatalf("expected success, got %v", res.Err)
		}
		if a.calls != 1 || b.calls != 1 || c.calls != 1 || d.calls != 0 {
			t.Errorf("calls = %d,%d,%d,%d, want 1,1,1,0", a.calls, b.calls, c.calls, d.calls)
		}
		if res.ScratchDir != c.dirs[0] {
			t.Errorf("ScratchDir = %q, want %q", res.ScratchDir, c.dirs[0])
		}
		tu.AssertNotExists(t, a.dirs[0])
		tu.AssertNotExists(t, b.dirs[0])
		tu.AssertFileExists(t, res.PayloadPath)
	})

	t.Run("every attempt gets a fresh scratch dir", func(t *testing.T) {
		a := &fakeStrategy{name: "a", retryable: true}
		b := &fakeStrategy{name: "b", ok: true}
		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a, b), ScratchRoot: t.TempDir()})
		exec.Run(context.Background(), testCandidate)

		if a.dirs[0] == b.dirs[0] {
			t.Error("expected distinct scratch directories")
		}
	})

	t.Run("all failed", func(t *testing.T) {
		a := &fakeStrategy{name: "a", retryable: false}
		b := &fakeStrategy{name: "b", retryable: true}
		root := t.TempDir()
		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a, b), ScratchRoot: root})
		res := exec.Run(context.Background(), testCandidate)

		if res.OK {
			t.Fatal("expected failure")
		}
		if !res.Retryable {
			t.Error("expected retryable when any attempt was retryable")
		}
		if res.Err == nil || res.Err.Error() != "all 2 strategies failed for dQw4w9WgXcQ: b failed" {
			t.Errorf("unexpected error: %v", res.Err)
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatalf("read scratch root: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected scratch root to be empty, found %d entries", len(entries))
		}
	})

	t.Run("all failed without retry", func(t *testing.T) {
		a := &fakeStrategy{name: "a"}
		b := &fakeStrategy{name: "b"}
		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a, b), ScratchRoot: t.TempDir()})
		if res := exec.Run(context.Background(), testCandidate); res.Retryable {
			t.Error("expected non-retryable aggregate failure")
		}
	})

	t.Run("panic is recovered", func(t *testing.T) {
		a := &fakeStrategy{name: "a", panics: true}
		b := &fakeStrategy{name: "b", ok: true}
		rec := &fakeRecorder{}
		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a, b), ScratchRoot: t.TempDir(), Recorder: rec})
		res := exec.Run(context.Background(), testCandidate)

		if !res.OK {
			t.Fatalf("expected fallback success, got %v", res.Err)
		}
		tu.AssertNotExists(t, a.dirs[0])

		records := rec.all()
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Status != AttemptPanicked || records[1].Status != AttemptSucceeded {
			t.Errorf("statuses = %s,%s", records[0].Status, records[1].Status)
		}
	})

	t.Run("empty payload is a failure", func(t *testing.T) {
		a := &fakeStrategy{name: "a", ok: true, empty: true}
		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a), ScratchRoot: t.TempDir()})
		res := exec.Run(context.Background(), testCandidate)

		if res.OK {
			t.Fatal("expected failure for empty payload")
		}
		if !errors.Is(res.Err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", res.Err)
		}
	})

	t.Run("no strategies", func(t *testing.T) {
		exec := NewExecutor(ExecutorOpts{ScratchRoot: t.TempDir()})
		res := exec.Run(context.Background(), testCandidate)
		if res.OK || res.Retryable || !errors.Is(res.Err, shared.ErrInvalidConfig) {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		a := &fakeStrategy{name: "a", ok: true}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a), ScratchRoot: t.TempDir()})
		res := exec.Run(ctx, testCandidate)
		if res.OK || a.calls != 0 {
			t.Errorf("expected no attempts, got %d calls", a.calls)
		}
	})

	t.Run("records carry batch and item", func(t *testing.T) {
		a := &fakeStrategy{name: "a", retryable: true}
		b := &fakeStrategy{name: "b", ok: true}
		rec := &fakeRecorder{}
		exec := NewExecutor(ExecutorOpts{Strategies: asStrategies(a, b), ScratchRoot: t.TempDir(), Recorder: rec})

		item := models.CatalogItem{Title: "Song", Artist: "Band"}
		ctx := withItem(WithBatchID(context.Background(), "batch-1"), item)
		exec.Run(ctx, testCandidate)

		records := rec.all()
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		first := records[0]
		if first.BatchID != "batch-1" || first.Item != item || first.Strategy != "a" || first.Candidate != testCandidate.Identifier {
			t.Errorf("unexpected record: %+v", first)
		}
		if first.Status != AttemptFailed || first.Message != "a failed" {
			t.Errorf("unexpected failure record: %+v", first)
		}
		if records[1].Message != "" {
			t.Errorf("expected empty message on success, got %q", records[1].Message)
		}
	})
}
