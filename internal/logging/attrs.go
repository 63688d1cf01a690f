package logging

import (
	"log/slog"
	"time"

	"mediafetch/internal/services"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Path tags a local file path.
func Path(value string) Attr { return slog.String(FieldPath, value) }

// Bytes tags a byte count.
func Bytes(value int64) Attr { return slog.Int64(FieldBytes, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Kind tags err with its classified kind, e.g. "fetch/transport".
func Kind(err error) Attr {
	return slog.String(FieldErrorKind, services.Classify(err).ErrorKind())
}

func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

func hasKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// WarnWithContext logs a warning tagged with eventType. A hint and an impact
// are filled in when the caller did not give them, so every warning tells
// the user what happened and where to look.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, FieldEventType, eventType)
	attrs = withDefault(attrs, FieldErrorHint, "see "+LogFileName+" in the log directory")
	attrs = withDefault(attrs, FieldImpact, "the job continues")
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs an error tagged with eventType and a default hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, FieldEventType, eventType)
	attrs = withDefault(attrs, FieldErrorHint, "see "+LogFileName+" in the log directory")
	logger.Error(msg, Args(attrs...)...)
}

func withDefault(attrs []Attr, key, value string) []Attr {
	if hasKey(attrs, key) {
		return attrs
	}
	return append(attrs, String(key, value))
}
