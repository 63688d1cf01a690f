package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediafetch/internal/config"
	"mediafetch/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_MissingButCreatable(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nested", "out"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_ReadOnlyParent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	parent := t.TempDir()
	if err := os.Chmod(parent, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })
	result := CheckDirectoryAccess("test", filepath.Join(parent, "out"))
	if result.Passed {
		t.Fatalf("expected failure under read-only parent, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_Unset(t *testing.T) {
	if result := CheckDirectoryAccess("test", " "); result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if result := CheckEndpoint(context.Background(), srv.Client(), "svc", srv.URL); !result.Passed {
		t.Fatalf("4xx should still count as reachable, got: %s", result.Detail)
	}
}

func TestCheckEndpoint_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckEndpoint(context.Background(), srv.Client(), "svc", srv.URL)
	if result.Passed || !strings.Contains(result.Detail, "503") {
		t.Fatalf("expected unhealthy result, got: %+v", result)
	}
}

func TestCheckEndpoint_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if result := CheckEndpoint(context.Background(), http.DefaultClient, "svc", url); result.Passed {
		t.Fatal("expected failure for closed server")
	}
}

func TestRunAllSkipsNetworkWithoutClient(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfg.History.Enabled = true

	results := RunAll(context.Background(), &cfg, nil)
	if len(results) != 4 {
		t.Fatalf("expected 4 directory checks, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("%s failed: %s", r.Name, r.Detail)
		}
	}
}

func TestToolStatuses(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	ffmpeg := deps.NewToolLocator("ffmpeg", "", "https://example.invalid/ffmpeg", t.TempDir(), nil, nil)
	ffprobe := deps.NewToolLocator("ffprobe", "", "", "", nil, nil)
	statuses := ToolStatuses(ffmpeg, ffprobe)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Available || !strings.Contains(statuses[0].Detail, "downloaded on first use") {
		t.Fatalf("unexpected ffmpeg status: %+v", statuses[0])
	}
	if !statuses[1].Optional || statuses[1].Available {
		t.Fatalf("unexpected ffprobe status: %+v", statuses[1])
	}
}
