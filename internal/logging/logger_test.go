package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediafetch/internal/config"
	"mediafetch/internal/logging"
	"mediafetch/internal/services"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "batch").Info("batch complete", logging.Int("succeeded", 2))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "mediafetch.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", content, err)
	}
	if record["msg"] != "batch complete" || record["component"] != "batch" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["succeeded"] != float64(2) {
		t.Fatalf("expected succeeded=2, got %v", record["succeeded"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "fetch").Info("attempt failed",
		logging.Int("attempt", 2),
		logging.String("reason", "connection reset"),
		logging.Duration("delay", 1500*time.Millisecond),
	)

	line := buf.String()
	for _, want := range []string{" INFO  fetch: attempt failed", "attempt=2", `reason="connection reset"`, "delay=1.5s"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestConsoleLoggerMovesJobAndStageIntoPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithJobID(ctx, "1a2b3c4d-5e6f-4711-8899-aabbccddeeff")
	ctx = services.WithStage(ctx, "fetching(2)")

	logging.WithContext(ctx, logging.NewComponentLogger(logger, "acquire")).Info("variant fetched", logging.Bytes(512))

	line := buf.String()
	if !strings.Contains(line, "acquire [1a2b3c4d fetching(2)]: variant fetched bytes=512") {
		t.Fatalf("unexpected console line %q", line)
	}
	if strings.Contains(line, "run-1") || strings.Contains(line, "job_id=") {
		t.Fatalf("run and job ids should not repeat as fields: %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestNewFromConfigTeesConsoleAndFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "warn"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("below threshold")
	logger.Warn("kept", logging.Duration(logging.FieldDuration, 2*time.Second))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "below threshold") {
		t.Fatalf("info record should be filtered at warn level: %q", content)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", content, err)
	}
	if record["level"] != "warn" || record[logging.FieldDuration] != float64(2) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithJobID(ctx, "job-7")
	ctx = services.WithStage(ctx, "combining")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	want := map[string]string{
		logging.FieldRunID:         "run-1",
		logging.FieldJobID:         "job-7",
		logging.FieldStage:         "combining",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if record[key] != value {
			t.Fatalf("field %s = %v, want %q", key, record[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "intermediate cleanup failed", "cleanup_failed",
		logging.String(logging.FieldImpact, "stray file left in output directory"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "cleanup_failed" {
		t.Fatalf("unexpected event type: %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "see mediafetch.log in the log directory" {
		t.Fatalf("expected default error hint, got %v", record[logging.FieldErrorHint])
	}
	if record[logging.FieldImpact] != "stray file left in output directory" {
		t.Fatalf("caller impact should be preserved, got %v", record[logging.FieldImpact])
	}
}
