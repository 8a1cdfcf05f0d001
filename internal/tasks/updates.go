package tasks

import (
	"fmt"

	"github.com/desertthunder/songdl/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolvePlaylist Phase = iota
	PrepareBatch
	DownloadItem
	ItemDone
	BatchDone
	BatchCancelled
)

func (p Phase) String() string {
	switch p {
	case ResolvePlaylist:
		return "resolve_playlist"
	case PrepareBatch:
		return "prepare_batch"
	case DownloadItem:
		return "download_item"
	case ItemDone:
		return "item_done"
	case BatchDone:
		return "batch_done"
	case BatchCancelled:
		return "batch_cancelled"
	default:
		return ""
	}
}

// ItemResult is attached to [ItemDone] updates.
type ItemResult struct {
	Item    models.CatalogItem
	Outcome models.ItemOutcome
	Err     error
}

func resolvingPlaylistUpdate(idOrName string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %q from Spotify...", idOrName),
	}
}

func foundPlaylistUpdate(export *models.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", export.Playlist.Name, len(export.Items)),
		Data:    export,
	}
}

func prepareBatchUpdate(total int, outputDir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PrepareBatch,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Downloading %d tracks to %s", total, outputDir),
	}
}

func downloadItemUpdate(step, total int, item models.CatalogItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadItem,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s", step, total, item),
	}
}

func itemDoneUpdate(step, total int, item models.CatalogItem, outcome models.ItemOutcome, err error) ProgressUpdate {
	var msg string
	switch {
	case outcome == models.Downloaded:
		msg = fmt.Sprintf("[%d/%d] ✓ %s", step, total, item)
	case outcome == models.SkippedExisting:
		msg = fmt.Sprintf("[%d/%d] ↷ %s (already downloaded)", step, total, item)
	case err != nil:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item, err)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: no source could be retrieved", step, total, item)
	}
	return ProgressUpdate{
		Phase:   ItemDone,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    ItemResult{Item: item, Outcome: outcome, Err: err},
	}
}

func batchDoneUpdate(summary *models.BatchSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchDone,
		Step:    summary.Processed(),
		Total:   summary.Total,
		Message: fmt.Sprintf("Done: %d downloaded, %d skipped, %d failed", summary.Succeeded, summary.Skipped, summary.Failed),
		Data:    summary,
	}
}

func batchCancelledUpdate(summary *models.BatchSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchCancelled,
		Step:    summary.Processed(),
		Total:   summary.Total,
		Message: fmt.Sprintf("Cancelled after %d of %d tracks", summary.Processed(), summary.Total),
		Data:    summary,
	}
}
