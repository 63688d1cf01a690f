package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"mediafetch/internal/batch"
	"mediafetch/internal/history"
	"mediafetch/internal/services"
)

const maxCellWidth = 60

func renderFetchResults(report batch.Report) string {
	rows := make([][]string, 0, len(report.Results))
	var total int64
	for _, r := range report.Results {
		total += r.Bytes
		status := "ok"
		detail := filepath.Base(r.Path)
		size := humanBytes(r.Bytes)
		if !r.Succeeded() {
			status = "failed"
			detail = failureDetail(r.Err)
			size = ""
		}
		title := r.Title
		if title == "" {
			title = r.URL
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Position + 1),
			status,
			title,
			detail,
			size,
		})
	}
	cols := []column{
		{Title: "#", Numeric: true},
		{Title: "Status"},
		{Title: "Title", MaxWidth: maxCellWidth},
		{Title: "Output / Error", MaxWidth: maxCellWidth},
		{Title: "Size", Numeric: true},
	}
	if total == 0 {
		return renderTable(cols, rows)
	}
	return renderTable(cols, rows, "", "", "", "Total", humanBytes(total))
}

// failureDetail keeps classified messages as they are and labels anything
// unclassified.
func failureDetail(err error) string {
	if err == nil {
		return ""
	}
	var classified *services.Error
	if errors.As(err, &classified) {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", services.Classify(err).ErrorKind(), err.Error())
}

func renderHistory(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := filepath.Base(e.OutputPath)
		if e.Status != history.StatusSucceeded {
			detail = e.ErrorKind
		}
		title := e.Title
		if title == "" {
			title = e.URL
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.FinishedAt.Local().Format("2006-01-02 15:04"),
			string(e.Status),
			e.Intent,
			title,
			detail,
		})
	}
	cols := columns("ID", "Finished", "Status", "Intent", "Title", "Output / Error")
	cols[0].Numeric = true
	cols[4].MaxWidth = maxCellWidth
	cols[5].MaxWidth = maxCellWidth
	return renderTable(cols, rows)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 1 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
