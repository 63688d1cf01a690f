package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediafetch/internal/config"
)

// LogFileName is the JSON log written inside the configured log directory.
const LogFileName = "mediafetch.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives formatted records. Nil means stderr.
	Writer io.Writer
	// Source adds caller locations. Debug level turns them on regardless.
	Source bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	handler, err := newHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// NewFromConfig builds the CLI logger. Records go to stderr in the configured
// format; when a log directory is set every record is also appended to
// LogFileName as JSON.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	console, err := newHandler(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	if cfg.Paths.LogDir == "" {
		return slog.New(console), nil
	}

	file, err := openLogFile(filepath.Join(cfg.Paths.LogDir, LogFileName))
	if err != nil {
		return nil, err
	}
	return slog.New(tee(console, newJSONHandler(file, parseLevel(cfg.Logging.Level), false))), nil
}

func newHandler(opts Options) (slog.Handler, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := parseLevel(opts.Level)
	source := opts.Source || level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		return newJSONHandler(w, level, source), nil
	case "console", "":
		return newConsoleHandler(w, level, source), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// newJSONHandler writes one object per record with a "ts" RFC3339 UTC
// timestamp and lowercase levels.
func newJSONHandler(w io.Writer, level slog.Level, source bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: source,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			case FieldDuration:
				if attr.Value.Kind() == slog.KindDuration {
					attr.Value = slog.Float64Value(attr.Value.Duration().Seconds())
				}
			}
			return attr
		},
	})
}
