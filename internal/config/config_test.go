package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mediafetch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, "Downloads", "mediafetch")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempHome, ".cache", "mediafetch") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.Network.MaxAttempts != 3 {
		t.Fatalf("unexpected max attempts: %d", cfg.Network.MaxAttempts)
	}
	if !strings.HasPrefix(cfg.Network.UserAgent, "Mozilla/5.0") {
		t.Fatalf("expected browser user agent, got %q", cfg.Network.UserAgent)
	}
	if cfg.Selection.VideoContainer != "mp4" {
		t.Fatalf("unexpected video container: %q", cfg.Selection.VideoContainer)
	}
	if cfg.Selection.AllowMuxedFallback {
		t.Fatal("expected muxed fallback disabled by default")
	}
	if cfg.Output.AudioExtension != "mp3" {
		t.Fatalf("unexpected audio extension: %q", cfg.Output.AudioExtension)
	}
	if cfg.Tools.FFmpegPath != "" {
		t.Fatalf("ffmpeg path should be unset so PATH and the cache are searched, got %q", cfg.Tools.FFmpegPath)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.CacheDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "mediafetch.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Network struct {
			MaxAttempts int `toml:"max_attempts"`
		} `toml:"network"`
		Selection struct {
			VideoContainer string `toml:"video_container"`
			MaxHeight      int    `toml:"max_height"`
		} `toml:"selection"`
		Output struct {
			AudioExtension string `toml:"audio_extension"`
		} `toml:"output"`
		Batch struct {
			Workers int `toml:"workers"`
		} `toml:"batch"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Network.MaxAttempts = 5
	custom.Selection.VideoContainer = "any"
	custom.Selection.MaxHeight = 720
	custom.Output.AudioExtension = ".M4A"
	custom.Batch.Workers = 64
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Network.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5, got %d", cfg.Network.MaxAttempts)
	}
	if cfg.Selection.VideoContainer != "" {
		t.Fatalf("expected container filter disabled, got %q", cfg.Selection.VideoContainer)
	}
	if cfg.Selection.MaxHeight != 720 {
		t.Fatalf("expected max height 720, got %d", cfg.Selection.MaxHeight)
	}
	if cfg.Output.AudioExtension != "m4a" {
		t.Fatalf("expected normalized audio extension, got %q", cfg.Output.AudioExtension)
	}
	if cfg.Batch.Workers != 16 {
		t.Fatalf("expected workers clamped to 16, got %d", cfg.Batch.Workers)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "mediafetch.toml")
	if err := os.WriteFile(configPath, []byte("[network]\nretries = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestEnvOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "mediafetch.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\noutput_dir = \"/srv/file-out\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envOut := filepath.Join(tempDir, "env-out")
	t.Setenv("MEDIAFETCH_OUTPUT_DIR", envOut)
	t.Setenv("MEDIAFETCH_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != envOut {
		t.Errorf("expected output dir from env, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Tools.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("expected ffmpeg from env, got %q", cfg.Tools.FFmpegPath)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "mediafetch") {
		t.Fatalf("expected output dir to contain mediafetch, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Network.MaxAttempts != 3 {
		t.Fatalf("expected sample max_attempts 3, got %d", cfg.Network.MaxAttempts)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists || loaded.Output.MuxedContainer != "mp4" {
		t.Fatalf("unexpected loaded sample: exists=%v container=%q", exists, loaded.Output.MuxedContainer)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero attempts", func(c *config.Config) { c.Network.MaxAttempts = 0 }},
		{"too many attempts", func(c *config.Config) { c.Network.MaxAttempts = 11 }},
		{"max delay below base", func(c *config.Config) { c.Network.RetryMaxDelayMS = c.Network.RetryBaseDelayMS - 1 }},
		{"negative height", func(c *config.Config) { c.Selection.MaxHeight = -1 }},
		{"extension with slash", func(c *config.Config) { c.Output.AudioExtension = "a/b" }},
		{"bad download url", func(c *config.Config) { c.Tools.FFmpegDownloadURL = "ftp://host/ffmpeg" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"empty output", func(c *config.Config) { c.Paths.OutputDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
