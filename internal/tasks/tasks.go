package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
)

// AttemptStatus is the result of one strategy invocation.
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	AttemptPanicked  AttemptStatus = "panicked"
)

// AttemptRecord is a single strategy invocation against a candidate.
type AttemptRecord struct {
	BatchID   string
	Item      models.CatalogItem
	Candidate string
	Strategy  string
	Status    AttemptStatus
	Message   string
}

// AttemptRecorder persists attempt records. Implementations log and swallow their own errors.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, rec AttemptRecord)
}

// BatchRecord describes a finished batch.
type BatchRecord struct {
	Summary      models.BatchSummary
	PlaylistID   string
	PlaylistName string
	OutputDir    string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// BatchRecorder persists batch summaries.
type BatchRecorder interface {
	RecordBatch(ctx context.Context, rec BatchRecord)
}

type batchIDKey struct{}
type itemKey struct{}

// WithBatchID attaches a batch ID to ctx for attempt records.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchIDFromContext returns the batch ID attached with [WithBatchID].
func BatchIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}

func withItem(ctx context.Context, item models.CatalogItem) context.Context {
	return context.WithValue(ctx, itemKey{}, item)
}

func itemFromContext(ctx context.Context) models.CatalogItem {
	item, _ := ctx.Value(itemKey{}).(models.CatalogItem)
	return item
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// DownloadResult contains all data from a playlist download.
type DownloadResult struct {
	Playlist   models.Playlist
	OutputDir  string
	Summary    *models.BatchSummary
	StartedAt  time.Time
	FinishedAt time.Time
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	Catalog        services.CatalogProvider
	Orchestrator   *Orchestrator
	Batches        BatchRecorder // Optional
	PerPlaylistDir bool
	Logger         *log.Logger
}

// Engine resolves a playlist through the catalog provider and downloads it as one batch.
type Engine struct {
	catalog        services.CatalogProvider
	orchestrator   *Orchestrator
	batches        BatchRecorder
	perPlaylistDir bool
	logger         *log.Logger
}

// NewEngine creates a new Engine with the provided collaborators.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Engine{
		catalog:        opts.Catalog,
		orchestrator:   opts.Orchestrator,
		batches:        opts.Batches,
		perPlaylistDir: opts.PerPlaylistDir,
		logger:         opts.Logger,
	}
}

// State exposes the orchestrator's shared batch state.
func (e *Engine) State() *BatchState {
	return e.orchestrator.State()
}

// OutputDir returns the directory a playlist is written to under baseDir.
func (e *Engine) OutputDir(baseDir string, pl models.Playlist) string {
	if !e.perPlaylistDir {
		return baseDir
	}
	return shared.PlaylistDir(baseDir, pl.Name)
}

// DownloadPlaylist fetches every item of idOrName and runs them as a batch into baseDir.
//
// The batch state is reset on entry, so a cancel issued while the playlist is
// still being resolved stops the batch before its first item.
func (e *Engine) DownloadPlaylist(ctx context.Context, idOrName, baseDir string, progress chan<- ProgressUpdate) (*DownloadResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, "catalog provider not initialized")
	}
	if e.orchestrator == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, "orchestrator not initialized")
	}
	e.State().Reset(0)

	sendProgress(progress, resolvingPlaylistUpdate(idOrName))
	export, err := e.catalog.ExportPlaylist(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, foundPlaylistUpdate(export))

	result := &DownloadResult{
		Playlist:  export.Playlist,
		OutputDir: e.OutputDir(baseDir, export.Playlist),
		StartedAt: time.Now(),
	}

	batchID := shared.GenerateID()
	ctx = WithBatchID(ctx, batchID)
	e.logger.Info("starting batch", "batch", batchID, "playlist", export.Playlist.Name, "items", len(export.Items), "output", result.OutputDir)

	summary, err := e.orchestrator.RunBatch(ctx, export.Items, result.OutputDir, progress)
	result.FinishedAt = time.Now()
	if err != nil {
		return nil, err
	}
	result.Summary = summary

	if e.batches != nil {
		e.batches.RecordBatch(ctx, BatchRecord{
			Summary:      *summary,
			PlaylistID:   export.Playlist.ID,
			PlaylistName: export.Playlist.Name,
			OutputDir:    result.OutputDir,
			StartedAt:    result.StartedAt,
			FinishedAt:   result.FinishedAt,
		})
	}
	return result, nil
}
