package models

import "time"

// Attempt is a persisted strategy invocation.
type Attempt struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id"`
	ItemKey   string    `json:"item_key"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Candidate string    `json:"candidate"`
	Strategy  string    `json:"strategy"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchRun is a persisted batch with its outcome counts.
type BatchRun struct {
	Summary      BatchSummary `json:"summary"`
	PlaylistID   string       `json:"playlist_id"`
	PlaylistName string       `json:"playlist_name"`
	OutputDir    string       `json:"output_dir"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// StrategyStat aggregates attempts for one strategy.
type StrategyStat struct {
	Strategy  string `json:"strategy"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// Total is the number of attempts counted.
func (s StrategyStat) Total() int {
	return s.Succeeded + s.Failed
}

// SuccessRate is the fraction of successful attempts, zero when none were made.
func (s StrategyStat) SuccessRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total())
}

// AttemptSummary aggregates the attempt log of one batch.
type AttemptSummary struct {
	BatchID   string    `json:"batch_id"`
	Items     int       `json:"items"`
	Attempts  int       `json:"attempts"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
}
