// Package logging assembles structured slog loggers and formatting helpers used
// across mediafetch.
//
// It owns the console/JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with run IDs, job IDs, and
// acquisition stages. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
