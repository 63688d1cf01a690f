package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNetwork()
	c.normalizeSelection()
	c.normalizeOutput()
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("MEDIAFETCH_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeNetwork() {
	c.Network.UserAgent = strings.TrimSpace(c.Network.UserAgent)
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = defaultUserAgent
	}
	c.Network.AcceptLanguage = strings.TrimSpace(c.Network.AcceptLanguage)
	if c.Network.AcceptLanguage == "" {
		c.Network.AcceptLanguage = defaultAcceptLanguage
	}
	if c.Network.RequestTimeoutSeconds == 0 {
		c.Network.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.Network.MaxAttempts == 0 {
		c.Network.MaxAttempts = defaultMaxAttempts
	}
	if c.Network.RetryBaseDelayMS == 0 {
		c.Network.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Network.RetryMaxDelayMS == 0 {
		c.Network.RetryMaxDelayMS = defaultRetryMaxDelayMS
	}
}

func (c *Config) normalizeSelection() {
	c.Selection.VideoContainer = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Selection.VideoContainer), "."))
	if c.Selection.VideoContainer == "any" || c.Selection.VideoContainer == "*" {
		c.Selection.VideoContainer = ""
	}
}

func (c *Config) normalizeOutput() {
	c.Output.MuxedContainer = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Output.MuxedContainer), "."))
	if c.Output.MuxedContainer == "" {
		c.Output.MuxedContainer = defaultMuxedContainer
	}
	c.Output.AudioExtension = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Output.AudioExtension), "."))
	if c.Output.AudioExtension == "" {
		c.Output.AudioExtension = defaultAudioExtension
	}
}

func (c *Config) normalizeTools() error {
	var err error
	if c.Tools.FFmpegPath == "" {
		if value, ok := os.LookupEnv("MEDIAFETCH_FFMPEG"); ok {
			c.Tools.FFmpegPath = strings.TrimSpace(value)
		}
	}
	c.Tools.FFmpegPath = strings.TrimSpace(c.Tools.FFmpegPath)
	if strings.ContainsRune(c.Tools.FFmpegPath, os.PathSeparator) {
		if c.Tools.FFmpegPath, err = expandPath(c.Tools.FFmpegPath); err != nil {
			return fmt.Errorf("tools.ffmpeg_path: %w", err)
		}
	}
	c.Tools.FFprobePath = strings.TrimSpace(c.Tools.FFprobePath)
	if strings.ContainsRune(c.Tools.FFprobePath, os.PathSeparator) {
		if c.Tools.FFprobePath, err = expandPath(c.Tools.FFprobePath); err != nil {
			return fmt.Errorf("tools.ffprobe_path: %w", err)
		}
	}
	c.Tools.FFmpegDownloadURL = strings.TrimSpace(c.Tools.FFmpegDownloadURL)
	return nil
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultWorkers
	}
	if c.Batch.Workers > maxWorkers {
		c.Batch.Workers = maxWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
