package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	jobIDKey     contextKey = "job_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// with stores a non-empty value; empty values leave ctx untouched.
func with(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context { return with(ctx, runIDKey, id) }

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, runIDKey) }

// WithJobID annotates context with the per-URL job identifier.
func WithJobID(ctx context.Context, id string) context.Context { return with(ctx, jobIDKey, id) }

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, jobIDKey) }

// WithStage annotates context with the acquisition stage, e.g. "combining".
func WithStage(ctx context.Context, stage string) context.Context { return with(ctx, stageKey, stage) }

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

// WithRequestID tags one CLI invocation; it appears in logs as correlation_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, requestIDKey) }
