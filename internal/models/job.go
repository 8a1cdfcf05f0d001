package models

import "fmt"

// JobStatus is the lifecycle state of a [DownloadJob].
type JobStatus int

const (
	JobPending JobStatus = iota
	JobInProgress
	JobSucceeded
	JobSkipped
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobInProgress:
		return "in_progress"
	case JobSucceeded:
		return "succeeded"
	case JobSkipped:
		return "skipped"
	case JobFailed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobSkipped || s == JobFailed
}

// DownloadJob tracks one catalog item through the batch.
type DownloadJob struct {
	Item              CatalogItem
	AttemptsRemaining int
	Status            JobStatus
}

// NewDownloadJob creates a pending job with the given attempt budget.
func NewDownloadJob(item CatalogItem, attempts int) *DownloadJob {
	return &DownloadJob{Item: item, AttemptsRemaining: attempts, Status: JobPending}
}

// Transition moves the job to next. Terminal states are final and a job
// only enters JobInProgress from JobPending.
func (j *DownloadJob) Transition(next JobStatus) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %q already %s", j.Item.Title, j.Status)
	}
	if next == JobInProgress && j.Status != JobPending {
		return fmt.Errorf("job %q cannot start from %s", j.Item.Title, j.Status)
	}
	if next == JobPending {
		return fmt.Errorf("job %q cannot return to pending", j.Item.Title)
	}
	j.Status = next
	return nil
}

// ItemOutcome is the terminal result of processing one item.
type ItemOutcome int

const (
	Downloaded ItemOutcome = iota
	SkippedExisting
	GaveUp
)

func (o ItemOutcome) String() string {
	switch o {
	case Downloaded:
		return "downloaded"
	case SkippedExisting:
		return "skipped"
	case GaveUp:
		return "gave_up"
	default:
		return ""
	}
}

// Status maps the outcome onto the matching terminal [JobStatus].
func (o ItemOutcome) Status() JobStatus {
	switch o {
	case Downloaded:
		return JobSucceeded
	case SkippedExisting:
		return JobSkipped
	default:
		return JobFailed
	}
}

// BatchSummary aggregates outcomes over a batch.
type BatchSummary struct {
	ID        string `json:"id"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Total     int    `json:"total"`
	Cancelled bool   `json:"cancelled"`
}

// Processed is the number of items that reached a terminal outcome.
func (b BatchSummary) Processed() int {
	return b.Succeeded + b.Skipped + b.Failed
}

// Record counts one outcome.
func (b *BatchSummary) Record(o ItemOutcome) {
	switch o {
	case Downloaded:
		b.Succeeded++
	case SkippedExisting:
		b.Skipped++
	default:
		b.Failed++
	}
}
