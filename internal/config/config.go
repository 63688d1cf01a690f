package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
	HistoryDB string `toml:"history_db"`
}

// Network contains HTTP client identification and retry settings shared by
// catalog resolution and stream fetching.
type Network struct {
	UserAgent             string `toml:"user_agent"`
	AcceptLanguage        string `toml:"accept_language"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MaxAttempts           int    `toml:"max_attempts"`
	RetryBaseDelayMS      int    `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS       int    `toml:"retry_max_delay_ms"`
}

// Selection contains the declared filters applied before variants are ranked.
type Selection struct {
	VideoContainer     string `toml:"video_container"`
	MaxHeight          int    `toml:"max_height"`
	AllowMuxedFallback bool   `toml:"allow_muxed_fallback"`
}

// Output contains naming rules for final files.
type Output struct {
	MuxedContainer string `toml:"muxed_container"`
	AudioExtension string `toml:"audio_extension"`
}

// Tools contains external binary locations.
type Tools struct {
	FFmpegPath        string `toml:"ffmpeg_path"`
	FFprobePath       string `toml:"ffprobe_path"`
	FFmpegDownloadURL string `toml:"ffmpeg_download_url"`
	VerifyStreams     bool   `toml:"verify_streams"`
}

// Batch contains worker pool settings.
type Batch struct {
	Workers int `toml:"workers"`
}

// History contains run journal settings.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediafetch.
//
// Configuration sections by subsystem:
//   - Paths: output, log, cache, and history locations
//   - Network: client identification and fetch retry policy
//   - Selection: variant filters
//   - Output: final file naming
//   - Tools: ffmpeg/ffprobe discovery and provisioning
//   - Batch: worker pool size
//   - History: run journal toggle
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Network   Network   `toml:"network"`
	Selection Selection `toml:"selection"`
	Output    Output    `toml:"output"`
	Tools     Tools     `toml:"tools"`
	Batch     Batch     `toml:"batch"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediafetch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, log, and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Network.RequestTimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the first backoff delay between fetch attempts.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Network.RetryBaseDelayMS) * time.Millisecond
}

// RetryMaxDelay caps the backoff delay.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Network.RetryMaxDelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mediafetch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/mediafetch"
	}
	return filepath.Join(home, ".cache", "mediafetch")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
