package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.History.Enabled && strings.TrimSpace(c.Paths.HistoryDB) == "" {
		return errors.New("paths.history_db must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if err := ensurePositiveMap(map[string]int{
		"network.request_timeout_seconds": c.Network.RequestTimeoutSeconds,
		"network.max_attempts":            c.Network.MaxAttempts,
		"network.retry_base_delay_ms":     c.Network.RetryBaseDelayMS,
		"network.retry_max_delay_ms":      c.Network.RetryMaxDelayMS,
	}); err != nil {
		return err
	}
	if c.Network.MaxAttempts > 10 {
		return errors.New("network.max_attempts must be at most 10")
	}
	if c.Network.RetryMaxDelayMS < c.Network.RetryBaseDelayMS {
		return errors.New("network.retry_max_delay_ms must be >= network.retry_base_delay_ms")
	}
	return nil
}

func (c *Config) validateSelection() error {
	if c.Selection.MaxHeight < 0 {
		return errors.New("selection.max_height must be >= 0")
	}
	return nil
}

func (c *Config) validateOutput() error {
	for key, value := range map[string]string{
		"output.muxed_container": c.Output.MuxedContainer,
		"output.audio_extension": c.Output.AudioExtension,
	} {
		if strings.ContainsAny(value, `/\ `) {
			return fmt.Errorf("%s must be a bare extension, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.FFmpegDownloadURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Tools.FFmpegDownloadURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("tools.ffmpeg_download_url must be an http(s) URL, got %q", c.Tools.FFmpegDownloadURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
