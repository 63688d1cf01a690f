package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"mediafetch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConfiguration, "history", "open", "failed", base)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"history", "open", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestErrorMatchesKindAndSubKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		match    []error
		mismatch []error
		kind     string
	}{
		{
			name:     "resolution not found",
			err:      services.NewResolutionError(services.SubNotFound, "youtube", "video removed", nil),
			match:    []error{services.ErrResolution, services.ErrNotFound},
			mismatch: []error{services.ErrTransport, services.ErrFetch},
			kind:     "resolution/not_found",
		},
		{
			name:     "no streams is a not-found flavour of resolution",
			err:      services.NewResolutionError(services.SubNoStreams, "manifest", "", nil),
			match:    []error{services.ErrResolution, services.ErrNoStreams},
			mismatch: []error{services.ErrTransport},
			kind:     "resolution/no_streams",
		},
		{
			name:     "fetch transport",
			err:      services.NewFetchError(services.SubTransport, 3, "gave up", errors.New("reset")),
			match:    []error{services.ErrFetch, services.ErrTransport},
			mismatch: []error{services.ErrStorage},
			kind:     "fetch/transport",
		},
		{
			name:     "combine incompatible",
			err:      services.NewCombineError(services.SubIncompatibleCodecs, "vp9 in mp4", nil),
			match:    []error{services.ErrCombine, services.ErrIncompatibleCodecs},
			mismatch: []error{services.ErrToolMissing},
			kind:     "combine/incompatible_codecs",
		},
		{
			name:  "storage",
			err:   services.NewStorageError("renaming", "rename", errors.New("EXDEV")),
			match: []error{services.ErrStorage},
			kind:  "storage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("job: %w", tt.err)
			for _, target := range tt.match {
				if !errors.Is(wrapped, target) {
					t.Fatalf("expected %v to match %v", wrapped, target)
				}
			}
			for _, target := range tt.mismatch {
				if errors.Is(wrapped, target) {
					t.Fatalf("expected %v not to match %v", wrapped, target)
				}
			}
			var classifier services.ErrorClassifier
			if !errors.As(wrapped, &classifier) {
				t.Fatal("expected ErrorClassifier")
			}
			if got := classifier.ErrorKind(); got != tt.kind {
				t.Fatalf("unexpected kind: got %q want %q", got, tt.kind)
			}
		})
	}
}

func TestNoMatchingVariantNamesKind(t *testing.T) {
	err := services.NewNoMatchingVariant("audio", "")
	if err.MissingKind != "audio" {
		t.Fatalf("unexpected missing kind: %q", err.MissingKind)
	}
	if !strings.Contains(err.Error(), "audio") {
		t.Fatalf("expected message to name the kind, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	if services.Classify(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if got := services.Classify(fmt.Errorf("wrapped: %w", context.Canceled)); got.Kind != services.KindCanceled {
		t.Fatalf("expected canceled, got %s", got.Kind)
	}
	if got := services.Classify(errors.New("surprise")); got.Kind != services.KindInternal {
		t.Fatalf("expected internal, got %s", got.Kind)
	}
	inner := services.NewStorageError("fetching", "write", errors.New("disk full"))
	if got := services.Classify(fmt.Errorf("x: %w", inner)); got != inner {
		t.Fatal("expected the carried *Error to be returned")
	}
}

func TestRetryableOnlyForTransport(t *testing.T) {
	if !services.Retryable(services.NewResolutionError(services.SubTransport, "get", "", nil)) {
		t.Fatal("transport errors should be retryable")
	}
	if services.Retryable(services.NewResolutionError(services.SubNotFound, "get", "", nil)) {
		t.Fatal("not-found errors should not be retryable")
	}
	if services.Retryable(services.NewStorageError("fetching", "write", nil)) {
		t.Fatal("storage errors should not be retryable")
	}
}
