package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"mediafetch/internal/fileutil"
	"mediafetch/internal/logging"
	"mediafetch/internal/services"
)

// ToolLocator finds an external binary on first use and remembers the answer.
//
// A configured path is used as given. Otherwise the lookup order is PATH,
// then the download cache, then a download of a static build from
// DownloadURL (when set). A
// successful lookup is cached for the life of the locator; so is a failure,
// unless it came from context cancellation.
type ToolLocator struct {
	Name        string
	Configured  string
	DownloadURL string
	CacheDir    string

	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	resolved bool
	path     string
	err      error
}

// NewToolLocator constructs a locator for the named binary.
func NewToolLocator(name, configured, downloadURL, cacheDir string, client *http.Client, logger *slog.Logger) *ToolLocator {
	if client == nil {
		client = http.DefaultClient
	}
	return &ToolLocator{
		Name:        strings.TrimSpace(name),
		Configured:  strings.TrimSpace(configured),
		DownloadURL: strings.TrimSpace(downloadURL),
		CacheDir:    strings.TrimSpace(cacheDir),
		client:      client,
		logger:      logging.NewComponentLogger(logger, "tools"),
	}
}

// Path returns the executable path, resolving it on first call. Failures are
// reported as CombineError{ToolMissing}.
func (l *ToolLocator) Path(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved {
		return l.path, l.err
	}
	path, err := l.locate(ctx)
	if err != nil && ctx.Err() != nil {
		return "", err
	}
	l.resolved = true
	l.path, l.err = path, err
	return path, err
}

// Status reports availability without downloading anything.
func (l *ToolLocator) Status() Status {
	status := Check(Requirement{Name: l.Name, Command: l.binaryName()})
	if status.Available || l.Configured != "" {
		return status
	}
	if cached := l.cachePath(); cached != "" && isExecutableFile(cached) {
		status.Command = cached
		status.Available = true
		status.Detail = ""
		return status
	}
	if l.DownloadURL != "" {
		status.Downloadable = true
		status.Detail = "not installed; will be downloaded on first use"
	}
	return status
}

func (l *ToolLocator) locate(ctx context.Context) (string, error) {
	if path, ok := l.existing(); ok {
		l.logger.Debug("tool located", logging.String("tool", l.Name), logging.Path(path))
		return path, nil
	}
	if l.Configured != "" {
		return "", services.NewCombineError(services.SubToolMissing,
			fmt.Sprintf("%s not executable at configured path %s", l.Name, l.Configured), nil)
	}
	if l.DownloadURL == "" {
		return "", services.NewCombineError(services.SubToolMissing,
			fmt.Sprintf("%s not found on PATH; install it or set tools.%s_path", l.Name, l.Name), exec.ErrNotFound)
	}
	path, err := l.download(ctx)
	if err != nil {
		return "", services.NewCombineError(services.SubToolMissing, "download "+l.Name, err)
	}
	return path, nil
}

// existing checks the configured path, PATH, and the cache, in that order.
func (l *ToolLocator) existing() (string, bool) {
	if l.Configured != "" {
		if isExecutableFile(l.Configured) {
			return l.Configured, true
		}
		if resolved, err := exec.LookPath(l.Configured); err == nil {
			return resolved, true
		}
		return "", false
	}
	if resolved, err := exec.LookPath(l.binaryName()); err == nil {
		return resolved, true
	}
	if cached := l.cachePath(); cached != "" && isExecutableFile(cached) {
		return cached, true
	}
	return "", false
}

func (l *ToolLocator) download(ctx context.Context) (string, error) {
	target := l.cachePath()
	if target == "" {
		return "", errors.New("no cache directory configured")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	l.logger.Info("downloading tool",
		logging.String("tool", l.Name),
		logging.String("url", l.DownloadURL),
		logging.String(logging.FieldEventType, "tool_download_started"),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.DownloadURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: http %s", l.DownloadURL, resp.Status)
	}
	written, err := fileutil.WriteAtomic(target, resp.Body, 0o755)
	if err != nil {
		return "", err
	}
	if written == 0 {
		_ = os.Remove(target)
		return "", fmt.Errorf("download %s: empty body", l.DownloadURL)
	}
	l.logger.Info("tool downloaded",
		logging.String("tool", l.Name),
		logging.Path(target),
		logging.Bytes(written),
		logging.String(logging.FieldEventType, "tool_download_complete"),
	)
	return target, nil
}

func (l *ToolLocator) binaryName() string {
	if l.Configured != "" {
		return l.Configured
	}
	if runtime.GOOS == "windows" {
		return l.Name + ".exe"
	}
	return l.Name
}

func (l *ToolLocator) cachePath() string {
	if l.CacheDir == "" {
		return ""
	}
	name := l.Name
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(l.CacheDir, "bin", name)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
