package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the top-level failure class reported for a job.
type Kind string

const (
	KindResolution        Kind = "resolution"
	KindNoMatchingVariant Kind = "no_matching_variant"
	KindFetch             Kind = "fetch"
	KindStorage           Kind = "storage"
	KindCombine           Kind = "combine"
	KindCanceled          Kind = "canceled"
	KindInternal          Kind = "internal"
)

// Sub-kinds refine resolution and combine failures.
const (
	SubNotFound           = "not_found"
	SubTransport          = "transport"
	SubNoStreams          = "no_streams"
	SubToolMissing        = "tool_missing"
	SubNonZeroExit        = "nonzero_exit"
	SubIncompatibleCodecs = "incompatible_codecs"
)

// Sentinel markers usable with errors.Is. A *Error matches the marker for its
// Kind and, where set, the marker for its sub-kind.
var (
	ErrResolution         = errors.New("resolution error")
	ErrNotFound           = errors.New("not found")
	ErrTransport          = errors.New("transport error")
	ErrNoStreams          = errors.New("no streams available")
	ErrNoMatchingVariant  = errors.New("no matching variant")
	ErrFetch              = errors.New("fetch error")
	ErrStorage            = errors.New("storage error")
	ErrCombine            = errors.New("combine error")
	ErrToolMissing        = errors.New("tool missing")
	ErrNonZeroExit        = errors.New("tool exited non-zero")
	ErrIncompatibleCodecs = errors.New("incompatible codecs")
	ErrCanceled           = errors.New("canceled")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
)

// ErrorClassifier allows errors to declare their classification for reporting.
type ErrorClassifier interface {
	ErrorKind() string
}

// Error is the classified failure carried through the pipeline.
type Error struct {
	Kind        Kind
	Sub         string
	Stage       string
	Op          string
	Message     string
	Attempts    int
	MissingKind string
	Err         error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	label := string(e.Kind)
	if e.Sub != "" {
		label += "(" + e.Sub + ")"
	}
	detail := buildDetail(e.Stage, e.Op, e.Message)
	if e.Attempts > 0 {
		detail += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", label, detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", label, detail)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind returns "<kind>" or "<kind>/<sub>".
func (e *Error) ErrorKind() string {
	if e.Sub == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + "/" + e.Sub
}

// Is matches the kind and sub-kind sentinels.
func (e *Error) Is(target error) bool {
	if target == kindMarker(e.Kind) {
		return true
	}
	return e.Sub != "" && target == subMarker(e.Sub)
}

func kindMarker(kind Kind) error {
	switch kind {
	case KindResolution:
		return ErrResolution
	case KindNoMatchingVariant:
		return ErrNoMatchingVariant
	case KindFetch:
		return ErrFetch
	case KindStorage:
		return ErrStorage
	case KindCombine:
		return ErrCombine
	case KindCanceled:
		return ErrCanceled
	}
	return nil
}

func subMarker(sub string) error {
	switch sub {
	case SubNotFound:
		return ErrNotFound
	case SubTransport:
		return ErrTransport
	case SubNoStreams:
		return ErrNoStreams
	case SubToolMissing:
		return ErrToolMissing
	case SubNonZeroExit:
		return ErrNonZeroExit
	case SubIncompatibleCodecs:
		return ErrIncompatibleCodecs
	}
	return nil
}

// NewResolutionError reports a catalog lookup failure. sub is SubNotFound,
// SubTransport, or SubNoStreams.
func NewResolutionError(sub, op, message string, err error) *Error {
	return &Error{Kind: KindResolution, Sub: sub, Stage: "resolve", Op: op, Message: message, Err: err}
}

// NewNoMatchingVariant reports that the catalog has no candidate of the named kind.
func NewNoMatchingVariant(missingKind, message string) *Error {
	return &Error{
		Kind:        KindNoMatchingVariant,
		Stage:       "select",
		MissingKind: missingKind,
		Message:     strings.TrimSpace("no " + missingKind + " variant " + message),
	}
}

// NewFetchError reports a download that failed after the given number of attempts.
func NewFetchError(sub string, attempts int, message string, err error) *Error {
	return &Error{Kind: KindFetch, Sub: sub, Stage: "fetch", Op: "download", Message: message, Attempts: attempts, Err: err}
}

// NewStorageError reports a local filesystem failure.
func NewStorageError(stage, op string, err error) *Error {
	return &Error{Kind: KindStorage, Stage: stage, Op: op, Err: err}
}

// NewCombineError reports a mux failure.
func NewCombineError(sub, message string, err error) *Error {
	return &Error{Kind: KindCombine, Sub: sub, Stage: "combine", Op: "ffmpeg", Message: message, Err: err}
}

// NewCanceled reports that the job was stopped by context cancellation.
func NewCanceled(stage string, err error) *Error {
	return &Error{Kind: KindCanceled, Stage: stage, Message: "job canceled", Err: err}
}

// Classify returns the *Error carried by err. Context errors become
// KindCanceled and anything unclassified becomes KindInternal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCanceled("", err)
	}
	return &Error{Kind: KindInternal, Err: err}
}

// Retryable reports whether the failure is a transient transport error.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
