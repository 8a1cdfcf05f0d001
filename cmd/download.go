package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/songdl/internal/audio"
	"github.com/desertthunder/songdl/internal/formatter"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/repositories"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/strategies"
	"github.com/desertthunder/songdl/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const progressBuffer = 64

// DownloadRun downloads every track of a playlist.
//
// The first interrupt finishes the current track and stops; a second one aborts it.
func (r *Runner) DownloadRun(ctx context.Context, cmd *cli.Command) error {
	playlist := cmd.String("playlist")
	if playlist == "" {
		return fmt.Errorf("%w: --playlist flag is required", shared.ErrMissingArgument)
	}
	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Download.OutputDir
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, closeFn, err := r.downloadEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn.Close()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	result, err := r.runDownload(ctx, engine, playlist, outputDir, signals)
	if err != nil {
		return err
	}

	return r.printSummary(result, format, cmd.String("report"))
}

// downloadEngine returns the injected engine or builds the full pipeline from configuration.
func (r *Runner) downloadEngine(ctx context.Context) (*tasks.Engine, io.Closer, error) {
	if r.engine != nil {
		return r.engine, io.NopCloser(nil), nil
	}

	d := r.config.Download
	if err := r.config.Validate(); err != nil {
		return nil, nil, err
	}
	if d.Codec != "" && d.Codec != audio.CanonicalExt {
		return nil, nil, fmt.Errorf("%w: download.codec %q is not supported (only %s)", shared.ErrInvalidConfig, d.Codec, audio.CanonicalExt)
	}

	tools, err := r.preflight(d)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := r.authenticatedCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	db, err := openDatabase(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	history := repositories.NewHistoryRecorder(db, r.logger)

	ffmpeg := d.FFmpegPath
	if s, ok := tools["ffmpeg"]; ok && s.Found() {
		ffmpeg = s.Resolved
	}
	normalizer := audio.NewNormalizer(audio.NewFFmpegEncoder(ffmpeg), d.Bitrate, r.logger.WithPrefix("normalize"))

	deps := strategies.Deps{
		Download:      d,
		HTTPClient:    r.httpClient,
		Normalizer:    normalizer,
		ChromeProfile: strategies.ChromeProfileAvailable(),
		Logger:        r.logger.WithPrefix("strategy"),
	}
	if s, ok := tools["aria2c"]; ok && s.Found() {
		deps.Aria2c = s.Resolved
	}

	chain, err := strategies.NewRegistry().Build(d.Strategies, deps)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	executor := tasks.NewExecutor(tasks.ExecutorOpts{
		Strategies:  chain,
		ScratchRoot: d.ScratchDir,
		Recorder:    history,
		Logger:      r.logger.WithPrefix("executor"),
	})

	var tagger tasks.Tagger
	if d.Tag {
		tagger = audio.NewTagger()
	}

	processor := tasks.NewProcessor(tasks.ProcessorOpts{
		Locator: services.NewYouTubeSearch(services.YouTubeSearchOpts{
			SearchURL:  d.SearchURL,
			Limit:      d.Candidates,
			Interval:   shared.Seconds(d.RequestIntervalSeconds),
			HTTPClient: r.httpClient,
			Logger:     r.logger.WithPrefix("search"),
		}),
		Executor:     executor,
		Tagger:       tagger,
		MaxAttempts:  d.MaxAttempts,
		SearchSuffix: d.SearchSuffix,
		Backoff:      tasks.Window{Min: shared.Seconds(d.BackoffMinSeconds), Max: shared.Seconds(d.BackoffMaxSeconds)},
		Pause:        tasks.Window{Min: shared.Seconds(d.PauseMinSeconds), Max: shared.Seconds(d.PauseMaxSeconds)},
		Logger:       r.logger.WithPrefix("processor"),
	})

	engine := tasks.NewEngine(tasks.EngineOpts{
		Catalog:        catalog,
		Orchestrator:   tasks.NewOrchestrator(processor, nil, r.logger.WithPrefix("batch")),
		Batches:        history,
		PerPlaylistDir: d.PerPlaylistDir,
		Logger:         r.logger,
	})
	r.engine = engine
	return engine, db, nil
}

// preflight resolves the external tools. A missing required tool is an error, the rest are warnings.
func (r *Runner) preflight(d shared.DownloadConfig) (map[string]shared.ToolStatus, error) {
	statuses, err := r.checkTools(shared.DownloadTools(d))
	found := make(map[string]shared.ToolStatus, len(statuses))
	for _, s := range statuses {
		found[s.Name] = s
		if !s.Found() && !s.Required {
			r.logger.Warn("optional tool not found", "tool", s.Name, "path", s.Path)
			r.writePlain("⚠ %s not found, some strategies will be slower or unavailable\n", s.Name)
		}
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

// runDownload runs the batch worker, the progress printer and the signal watcher until the batch ends.
func (r *Runner) runDownload(ctx context.Context, engine *tasks.Engine, playlist, outputDir string, signals <-chan os.Signal) (*tasks.DownloadResult, error) {
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan struct{})
	var result *tasks.DownloadResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		res, err := r.startBatch(gctx, engine, playlist, outputDir, progress)
		result = res
		return err
	})
	g.Go(func() error {
		for update := range progress {
			r.onProgress(update)
		}
		return nil
	})
	g.Go(func() error {
		r.watchSignals(done, signals, engine.State(), abort)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// startBatch is the worker. It owns and closes progress.
func (r *Runner) startBatch(ctx context.Context, engine *tasks.Engine, playlist, outputDir string, progress chan tasks.ProgressUpdate) (*tasks.DownloadResult, error) {
	defer close(progress)
	return engine.DownloadPlaylist(ctx, playlist, outputDir, progress)
}

// watchSignals sets the cancel flag on the first signal and aborts on the second.
func (r *Runner) watchSignals(done <-chan struct{}, signals <-chan os.Signal, state *tasks.BatchState, abort context.CancelFunc) {
	interrupted := false
	for {
		select {
		case <-done:
			return
		case sig := <-signals:
			if !interrupted {
				interrupted = true
				r.cancel(state, sig)
				continue
			}
			r.logger.Warn("aborting batch", "signal", sig)
			r.onStatus("Aborting now")
			abort()
		}
	}
}

// cancel requests a cooperative stop before the next track.
func (r *Runner) cancel(state *tasks.BatchState, sig os.Signal) {
	state.Cancel()
	r.logger.Info("cancel requested", "signal", sig)
	r.onStatus("Stopping after the current track, interrupt again to abort")
}

func (r *Runner) onProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.ResolvePlaylist:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.PrepareBatch:
		r.writePlain("\n⬇ %s\n", update.Message)
	case tasks.DownloadItem:
		r.logger.Debug(update.Message)
	case tasks.ItemDone:
		r.writePlain("   %s\n", update.Message)
	case tasks.BatchDone, tasks.BatchCancelled:
		r.onStatus(update.Message)
	}
}

func (r *Runner) onStatus(msg string) {
	r.writePlain("\n→ %s\n", msg)
}

// printSummary writes the summary box and the optional report file.
func (r *Runner) printSummary(result *tasks.DownloadResult, f formatter.Format, reportPath string) error {
	finished := result.FinishedAt
	run := &models.BatchRun{
		Summary:      *result.Summary,
		PlaylistID:   result.Playlist.ID,
		PlaylistName: result.Playlist.Name,
		OutputDir:    result.OutputDir,
		StartedAt:    result.StartedAt,
		FinishedAt:   &finished,
	}

	data, err := formatter.RenderSummary(run, f)
	if err != nil {
		return err
	}

	if f == formatter.Text {
		r.writePlain("\n")
		if run.Summary.Cancelled {
			r.writePlainHeader("Download Cancelled")
		} else {
			r.writePlainHeader("Download Complete!")
		}
	}
	if err := r.writeBytes(data); err != nil {
		return err
	}

	if reportPath != "" {
		if err := formatter.WriteReport(reportPath, data); err != nil {
			return err
		}
		r.logger.Info("summary written", "path", reportPath, "elapsed", time.Since(result.StartedAt).Round(time.Second))
	}
	return nil
}
