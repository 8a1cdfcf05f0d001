package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	tu "github.com/desertthunder/songdl/internal/testing"
)

// fakeRunner replays results in order, repeating the last one.
type fakeRunner struct {
	results []func() models.RetrievalResult
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context, c models.SourceCandidate) models.RetrievalResult {
	i := min(f.calls, len(f.results)-1)
	f.calls++
	return f.results[i]()
}

func succeed(t *testing.T) func() models.RetrievalResult {
	t.Helper()
	root := t.TempDir()
	return func() models.RetrievalResult {
		dir, err := os.MkdirTemp(root, "scratch-")
		if err != nil {
			t.Fatalf("create scratch: %v", err)
		}
		path := filepath.Join(dir, "normalized.mp3")
		tu.MustWriteFile(t, path, tu.MP3Bytes)
		return models.Success(path, "audio/mpeg", dir)
	}
}

func fail(retryable bool) func() models.RetrievalResult {
	return func() models.RetrievalResult {
		return models.Failure(errors.New("retrieval failed"), retryable)
	}
}

type fakeTagger struct {
	paths []string
	err   error
}

func (f *fakeTagger) Tag(path string, item models.CatalogItem) error {
	f.paths = append(f.paths, path)
	return f.err
}

type sleepLog struct {
	delays []time.Duration
	err    error
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

var testItem = models.CatalogItem{Title: "Song", Artist: "Band", Album: "Record"}

func newTestProcessor(loc *tu.MockLocator, runner Runner, tagger Tagger, sl *sleepLog) *Processor {
	opts := ProcessorOpts{
		Locator:      loc,
		Executor:     runner,
		SearchSuffix: "audio",
		Backoff:      Window{Min: 2 * time.Second, Max: 4 * time.Second},
		Pause:        Window{Min: time.Second, Max: 3 * time.Second},
		Tagger:       tagger,
		Sleep:        sl.sleep,
		Rand:         func() float64 { return 0.5 },
	}
	return NewProcessor(opts)
}

func TestWindowPick(t *testing.T) {
	tc := []struct {
		name string
		w    Window
		r    float64
		want time.Duration
	}{
		{name: "lower bound", w: Window{Min: time.Second, Max: 3 * time.Second}, r: 0, want: time.Second},
		{name: "midpoint", w: Window{Min: time.Second, Max: 3 * time.Second}, r: 0.5, want: 2 * time.Second},
		{name: "fixed", w: Window{Min: time.Second, Max: time.Second}, r: 0.9, want: time.Second},
		{name: "inverted", w: Window{Min: 2 * time.Second, Max: time.Second}, r: 0.9, want: 2 * time.Second},
		{name: "zero", r: 0.7, want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.Pick(tt.r); got != tt.want {
				t.Errorf("Pick(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcessor(t *testing.T) {
	candidates := []models.SourceCandidate{testCandidate}

	t.Run("skips existing file without lookup", func(t *testing.T) {
		out := t.TempDir()
		tu.MustWriteFile(t, DestPath(out, testItem), tu.MP3Bytes)

		loc := &tu.MockLocator{Candidates: candidates}
		runner := &fakeRunner{results: []func() models.RetrievalResult{succeed(t)}}
		p := newTestProcessor(loc, runner, nil, &sleepLog{})

		outcome, err := p.Process(context.Background(), testItem, out)
		if err != nil || outcome != models.SkippedExisting {
			t.Fatalf("Process() = %v, %v; want skipped", outcome, err)
		}
		if loc.Calls() != 0 || runner.calls != 0 {
			t.Errorf("expected no lookups, got %d locate and %d run calls", loc.Calls(), runner.calls)
		}
	})

	t.Run("downloads, tags and pauses", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nested")
		loc := &tu.MockLocator{Candidates: candidates}
		var scratch string
		ok := succeed(t)
		runner := &fakeRunner{results: []func() models.RetrievalResult{func() models.RetrievalResult {
			res := ok()
			scratch = res.ScratchDir
			return res
		}}}
		tagger := &fakeTagger{}
		sl := &sleepLog{}
		p := newTestProcessor(loc, runner, tagger, sl)

		outcome, err := p.Process(context.Background(), testItem, out)
		if err != nil || outcome != models.Downloaded {
			t.Fatalf("Process() = %v, %v; want downloaded", outcome, err)
		}

		dest := filepath.Join(out, "Song - Band.mp3")
		tu.AssertFileExists(t, dest)
		tu.AssertNotExists(t, scratch)

		if len(tagger.paths) != 1 || tagger.paths[0] != dest {
			t.Errorf("tagger paths = %v, want [%s]", tagger.paths, dest)
		}
		if len(sl.delays) != 1 || sl.delays[0] != 2*time.Second {
			t.Errorf("delays = %v, want [2s]", sl.delays)
		}
		if loc.Queries[0] != "Song Band audio" {
			t.Errorf("query = %q", loc.Queries[0])
		}
	})

	t.Run("retries up to the attempt budget", func(t *testing.T) {
		loc := &tu.MockLocator{Candidates: candidates}
		runner := &fakeRunner{results: []func() models.RetrievalResult{fail(true)}}
		sl := &sleepLog{}
		p := newTestProcessor(loc, runner, nil, sl)

		outcome, err := p.Process(context.Background(), testItem, t.TempDir())
		if err != nil || outcome != models.GaveUp {
			t.Fatalf("Process() = %v, %v; want gave up with nil error", outcome, err)
		}
		if loc.Calls() != 3 || runner.calls != 3 {
			t.Errorf("expected 3 locate and 3 run calls, got %d and %d", loc.Calls(), runner.calls)
		}
		if len(sl.delays) != 2 {
			t.Errorf("expected 2 backoff sleeps, got %v", sl.delays)
		}
		for _, d := range sl.delays {
			if d != 3*time.Second {
				t.Errorf("backoff = %v, want 3s", d)
			}
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		loc := &tu.MockLocator{}
		runner := &fakeRunner{results: []func() models.RetrievalResult{succeed(t)}}
		p := newTestProcessor(loc, runner, nil, &sleepLog{})

		outcome, _ := p.Process(context.Background(), testItem, t.TempDir())
		if outcome != models.GaveUp || loc.Calls() != 3 || runner.calls != 0 {
			t.Errorf("outcome %v, %d locate calls, %d run calls", outcome, loc.Calls(), runner.calls)
		}
	})

	t.Run("non-retryable failure gives up immediately", func(t *testing.T) {
		loc := &tu.MockLocator{Candidates: candidates}
		runner := &fakeRunner{results: []func() models.RetrievalResult{fail(false)}}
		sl := &sleepLog{}
		p := newTestProcessor(loc, runner, nil, sl)

		outcome, err := p.Process(context.Background(), testItem, t.TempDir())
		if outcome != models.GaveUp || err == nil {
			t.Fatalf("Process() = %v, %v; want gave up with error", outcome, err)
		}
		if loc.Calls() != 1 || len(sl.delays) != 0 {
			t.Errorf("expected a single attempt, got %d locate calls and %d sleeps", loc.Calls(), len(sl.delays))
		}
	})

	t.Run("falls through to the next candidate", func(t *testing.T) {
		loc := &tu.MockLocator{Candidates: []models.SourceCandidate{{Identifier: "aaaaaaaaaaa"}, {Identifier: "bbbbbbbbbbb"}}}
		runner := &fakeRunner{results: []func() models.RetrievalResult{fail(true), succeed(t)}}
		p := newTestProcessor(loc, runner, nil, &sleepLog{})

		outcome, err := p.Process(context.Background(), testItem, t.TempDir())
		if err != nil || outcome != models.Downloaded {
			t.Fatalf("Process() = %v, %v; want downloaded", outcome, err)
		}
		if loc.Calls() != 1 || runner.calls != 2 {
			t.Errorf("expected 1 locate and 2 run calls, got %d and %d", loc.Calls(), runner.calls)
		}
	})

	t.Run("tagging failure is not fatal", func(t *testing.T) {
		loc := &tu.MockLocator{Candidates: candidates}
		runner := &fakeRunner{results: []func() models.RetrievalResult{succeed(t)}}
		p := newTestProcessor(loc, runner, &fakeTagger{err: errors.New("bad tag")}, &sleepLog{})

		if outcome, err := p.Process(context.Background(), testItem, t.TempDir()); err != nil || outcome != models.Downloaded {
			t.Errorf("Process() = %v, %v; want downloaded", outcome, err)
		}
	})

	t.Run("interrupted backoff", func(t *testing.T) {
		loc := &tu.MockLocator{Candidates: candidates}
		runner := &fakeRunner{results: []func() models.RetrievalResult{fail(true)}}
		p := newTestProcessor(loc, runner, nil, &sleepLog{err: context.Canceled})

		outcome, err := p.Process(context.Background(), testItem, t.TempDir())
		if outcome != models.GaveUp || !errors.Is(err, context.Canceled) {
			t.Errorf("Process() = %v, %v; want gave up with context.Canceled", outcome, err)
		}
		if loc.Calls() != 1 {
			t.Errorf("expected 1 locate call, got %d", loc.Calls())
		}
	})

	t.Run("interrupted pause still counts", func(t *testing.T) {
		loc := &tu.MockLocator{Candidates: candidates}
		runner := &fakeRunner{results: []func() models.RetrievalResult{succeed(t)}}
		p := newTestProcessor(loc, runner, nil, &sleepLog{err: context.Canceled})

		if outcome, err := p.Process(context.Background(), testItem, t.TempDir()); err != nil || outcome != models.Downloaded {
			t.Errorf("Process() = %v, %v; want downloaded", outcome, err)
		}
	})
}
