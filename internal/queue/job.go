// Package queue implements the download queue manager: batch submission,
// bounded-concurrency scheduling, progress aggregation, cooperative
// cancellation, and completed-job history.
package queue

import (
	"sync/atomic"
	"time"
)

// Job is one unit of scheduling: exactly one episode or movie from a batch.
type Job struct {
	ID         int64
	BatchTitle string
	ItemURL    string
	ItemIndex  int    // 1-based position within the originating batch
	Language   string
	Provider   string // canonical provider name; empty means auto-resolve

	Status        Status
	BatchProgress float64 // 0-100
	ItemProgress  float64 // 0-100
	StatusMessage string
	ErrorMessage  string

	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	// cancelled is the advisory cancellation flag. The worker and the
	// progress bridge poll it; nothing preempts a blocked transfer.
	cancelled atomic.Bool
	// cancelRun aborts the worker's context so blocked resolver attempts
	// unwind without waiting for the next progress tick.
	cancelRun func()
}

// CancelRequested reports whether a cancellation has been requested.
func (j *Job) CancelRequested() bool {
	return j.cancelled.Load()
}

// JobView is the immutable, JSON-serializable projection of a Job used by
// status snapshots, the HTTP API, and the history journal.
type JobView struct {
	ID            int64      `json:"id"`
	BatchTitle    string     `json:"batch_title"`
	ItemURL       string     `json:"item_url"`
	ItemIndex     int        `json:"item_index"`
	Language      string     `json:"language"`
	Provider      string     `json:"provider,omitempty"`
	Status        Status     `json:"status"`
	BatchProgress float64    `json:"batch_progress"`
	ItemProgress  float64    `json:"item_progress"`
	StatusMessage string     `json:"status_message,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// View copies the job into its API projection. Callers must hold the
// manager lock; the returned value is safe to retain.
func (j *Job) View() JobView {
	v := JobView{
		ID:            j.ID,
		BatchTitle:    j.BatchTitle,
		ItemURL:       j.ItemURL,
		ItemIndex:     j.ItemIndex,
		Language:      j.Language,
		Provider:      j.Provider,
		Status:        j.Status,
		BatchProgress: j.BatchProgress,
		ItemProgress:  j.ItemProgress,
		StatusMessage: j.StatusMessage,
		ErrorMessage:  j.ErrorMessage,
		CreatedAt:     j.CreatedAt,
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		v.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		v.FinishedAt = &t
	}
	return v
}
