package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"mediafetch/internal/batch"
	"mediafetch/internal/history"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type jobJSON struct {
	Position   int    `json:"position"`
	JobID      string `json:"job_id"`
	URL        string `json:"url"`
	Intent     string `json:"intent"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	Path       string `json:"path,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	Combined   bool   `json:"combined,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type fetchJSON struct {
	RunID     string    `json:"run_id"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Jobs      []jobJSON `json:"jobs"`
}

func fetchReportJSON(report batch.Report) fetchJSON {
	out := fetchJSON{
		RunID:     report.RunID,
		Failed:    report.Failed(),
		Succeeded: len(report.Results) - report.Failed(),
		Jobs:      make([]jobJSON, 0, len(report.Results)),
	}
	for _, r := range report.Results {
		job := jobJSON{
			Position:   r.Position,
			JobID:      r.JobID,
			URL:        r.URL,
			Intent:     string(r.Intent),
			Title:      r.Title,
			Status:     string(history.StatusSucceeded),
			Path:       r.Path,
			Bytes:      r.Bytes,
			Combined:   r.Combined,
			DurationMS: r.Duration().Milliseconds(),
		}
		if !r.Succeeded() {
			job.Status = string(history.StatusFailed)
			job.ErrorKind = r.ErrorKind()
			if r.Err != nil {
				job.Error = r.Err.Error()
			}
		}
		out.Jobs = append(out.Jobs, job)
	}
	return out
}

type historyJSON struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	URL        string    `json:"url"`
	Intent     string    `json:"intent"`
	Title      string    `json:"title,omitempty"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Path       string    `json:"path,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

func historyEntriesJSON(entries []history.Entry) []historyJSON {
	out := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyJSON{
			ID:         e.ID,
			RunID:      e.RunID,
			URL:        e.URL,
			Intent:     e.Intent,
			Title:      e.Title,
			Status:     string(e.Status),
			ErrorKind:  e.ErrorKind,
			Error:      e.ErrorMessage,
			Path:       e.OutputPath,
			Bytes:      e.Bytes,
			FinishedAt: e.FinishedAt,
		})
	}
	return out
}
