package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mediafetch/internal/deps"
)

// CheckDirectoryAccess verifies that the directory is readable and writable.
// A missing directory passes when its nearest existing parent is writable,
// since mediafetch creates it on first use.
func CheckDirectoryAccess(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
		parent, ok := existingParent(path)
		if !ok {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEndpoint verifies that url answers through client. Any HTTP answer
// below 500 counts as reachable.
func CheckEndpoint(ctx context.Context, client *http.Client, name, url string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("unhealthy (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// ToolStatuses reports ffmpeg and ffprobe availability without downloading
// anything.
func ToolStatuses(ffmpeg, ffprobe *deps.ToolLocator) []deps.Status {
	var statuses []deps.Status
	for _, tool := range []struct {
		locator *deps.ToolLocator
		req     deps.Requirement
	}{{ffmpeg, deps.FFmpeg}, {ffprobe, deps.FFprobe}} {
		if tool.locator == nil {
			continue
		}
		status := tool.locator.Status()
		status.Name = tool.req.Name
		status.Description = tool.req.Description
		status.Optional = tool.req.Optional
		statuses = append(statuses, status)
	}
	return statuses
}

func existingParent(path string) (string, bool) {
	dir := filepath.Clean(path)
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		if info, err := os.Stat(parent); err == nil {
			return parent, info.IsDir()
		}
		dir = parent
	}
}

func parentDir(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return filepath.Dir(path)
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "unreachable (DNS lookup failed)"
	}
	return err.Error()
}
