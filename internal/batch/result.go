package batch

import (
	"time"

	"mediafetch/internal/history"
	"mediafetch/internal/selector"
	"mediafetch/internal/services"
)

// JobResult is the outcome of one URL.
type JobResult struct {
	Position   int
	JobID      string
	URL        string
	Intent     selector.Intent
	Title      string
	Path       string
	Bytes      int64
	Combined   bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the job produced a final file.
func (r JobResult) Succeeded() bool {
	return r.Err == nil && r.Path != ""
}

// ErrorKind returns the classified failure kind, or "" on success.
func (r JobResult) ErrorKind() string {
	if r.Err == nil {
		return ""
	}
	return services.Classify(r.Err).ErrorKind()
}

// Duration is the wall time the job took.
func (r JobResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report collects the results of one Run.
type Report struct {
	RunID   string
	Results []JobResult
}

// Failed counts failed jobs.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Succeeded() {
			n++
		}
	}
	return n
}

func historyEntry(runID string, r JobResult) history.Entry {
	entry := history.Entry{
		RunID:      runID,
		JobID:      r.JobID,
		Position:   r.Position,
		URL:        r.URL,
		Intent:     string(r.Intent),
		Title:      r.Title,
		Status:     history.StatusSucceeded,
		OutputPath: r.Path,
		Bytes:      r.Bytes,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if !r.Succeeded() {
		entry.Status = history.StatusFailed
		entry.ErrorKind = r.ErrorKind()
		if r.Err != nil {
			entry.ErrorMessage = r.Err.Error()
		}
	}
	return entry
}
