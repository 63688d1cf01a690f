package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"mediafetch/internal/deps"
	"mediafetch/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

const statusLabelWidth = 20

// renderStatusLine formats "  Label:  [KIND] message", colored by kind.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	line := fmt.Sprintf("  %-*s [%s]", statusLabelWidth, label+":", style.label)
	if message != "" {
		line += " " + message
	}
	if colorize && style.color != "" {
		return style.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// toolLines renders one line per external tool. A required tool that is
// missing is an error unless it can still be downloaded on first use.
func toolLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, status := range statuses {
		if status.Available {
			message := "Ready"
			if status.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", status.Command)
			}
			lines = append(lines, renderStatusLine(status.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(status.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if status.Optional || status.Downloadable {
			kind = statusWarn
		}
		if status.Description != "" {
			detail = fmt.Sprintf("%s (%s)", detail, strings.ToLower(status.Description))
		}
		lines = append(lines, renderStatusLine(status.Name, kind, detail, colorize))
	}
	return lines
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

// shouldColorize reports whether writer is a terminal and NO_COLOR is unset.
func shouldColorize(writer io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
