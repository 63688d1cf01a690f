package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediafetch/internal/acquire"
	"mediafetch/internal/catalog"
	"mediafetch/internal/config"
	"mediafetch/internal/deps"
	"mediafetch/internal/fetch"
	"mediafetch/internal/logging"
	"mediafetch/internal/mux"
	"mediafetch/internal/selector"
	"mediafetch/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func identityFor(cfg *config.Config) catalog.Identity {
	return catalog.Identity{
		UserAgent:      cfg.Network.UserAgent,
		AcceptLanguage: cfg.Network.AcceptLanguage,
	}
}

// metadataClient bounds whole requests; it is only used for small bodies.
func metadataClient(cfg *config.Config) *http.Client {
	return catalog.NewHTTPClient(identityFor(cfg), cfg.RequestTimeout())
}

// streamClient has no overall timeout so long downloads are not cut off;
// stalls are bounded by the dialer and cancellation.
func streamClient(cfg *config.Config) *http.Client {
	return &http.Client{Transport: catalog.NewTransport(identityFor(cfg), nil)}
}

func newResolver(cfg *config.Config, logger *slog.Logger) catalog.Resolver {
	client := metadataClient(cfg)
	return catalog.NewRouter(
		catalog.NewYouTubeResolver(client, logger),
		catalog.NewManifestResolver(client, logger),
		logger,
	)
}

func selectionOptions(cfg *config.Config) selector.Options {
	return selector.Options{
		VideoContainer:     cfg.Selection.VideoContainer,
		MaxHeight:          cfg.Selection.MaxHeight,
		AllowMuxedFallback: cfg.Selection.AllowMuxedFallback,
	}
}

// toolLocators returns the ffmpeg locator and, when verification is enabled,
// the ffprobe locator. ffprobe is never downloaded.
func toolLocators(cfg *config.Config, logger *slog.Logger) (*deps.ToolLocator, *deps.ToolLocator) {
	client := streamClient(cfg)
	ffmpeg := deps.NewToolLocator("ffmpeg", cfg.Tools.FFmpegPath, cfg.Tools.FFmpegDownloadURL, cfg.Paths.CacheDir, client, logger)
	if !cfg.Tools.VerifyStreams {
		return ffmpeg, nil
	}
	ffprobe := deps.NewToolLocator("ffprobe", cfg.Tools.FFprobePath, "", cfg.Paths.CacheDir, client, logger)
	return ffmpeg, ffprobe
}

// checkMuxedContainer rejects containers the combiner cannot produce by
// stream copy. config cannot import mux, so the check runs here.
func checkMuxedContainer(cfg *config.Config) error {
	if !mux.SupportedContainer(cfg.Output.MuxedContainer) {
		return services.Wrap(services.ErrConfiguration, "", "output.muxed_container",
			fmt.Sprintf("%q is not supported (use mp4, mov, webm, or mkv)", cfg.Output.MuxedContainer), nil)
	}
	return nil
}

func newEngine(cfg *config.Config, logger *slog.Logger) *acquire.Engine {
	fetcher := fetch.New(streamClient(cfg), logger,
		fetch.WithMaxAttempts(cfg.Network.MaxAttempts),
		fetch.WithBackoff(cfg.RetryBaseDelay(), cfg.RetryMaxDelay()),
	)
	ffmpeg, ffprobe := toolLocators(cfg, logger)
	var verifier mux.Tool
	if ffprobe != nil {
		verifier = ffprobe
	}
	muxer := mux.NewMuxer(ffmpeg, verifier, logger)
	return acquire.NewEngine(fetcher, muxer, acquire.NewReserver(), logger, acquire.Options{
		MuxedContainer: cfg.Output.MuxedContainer,
		AudioExtension: cfg.Output.AudioExtension,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
