package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediafetch/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Check it with: mediafetch --config %s config validate\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// initTarget expands an explicit --path or falls back to the default
// location.
func initTarget(raw string) (string, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration, check it, and show the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := checkMuxedContainer(cfg); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, renderTable(columns("Setting", "Value"), settingsRows(cfg)))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// settingsRows lists the values most likely to surprise a user.
func settingsRows(cfg *config.Config) [][]string {
	ffmpeg := cfg.Tools.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "PATH lookup"
		if cfg.Tools.FFmpegDownloadURL != "" {
			ffmpeg += ", then download"
		}
	}
	history := "disabled"
	if cfg.History.Enabled {
		history = cfg.Paths.HistoryDB
	}
	videoContainer := cfg.Selection.VideoContainer
	if videoContainer == "" {
		videoContainer = "any"
	}
	maxHeight := "unlimited"
	if cfg.Selection.MaxHeight > 0 {
		maxHeight = strconv.Itoa(cfg.Selection.MaxHeight) + "p"
	}
	return [][]string{
		{"Output directory", cfg.Paths.OutputDir},
		{"Workers", strconv.Itoa(cfg.Batch.Workers)},
		{"Fetch attempts", strconv.Itoa(cfg.Network.MaxAttempts)},
		{"Video container", videoContainer},
		{"Max height", maxHeight},
		{"Muxed fallback", strconv.FormatBool(cfg.Selection.AllowMuxedFallback)},
		{"Combined container", cfg.Output.MuxedContainer},
		{"Audio extension", cfg.Output.AudioExtension},
		{"FFmpeg", ffmpeg},
		{"Verify streams", strconv.FormatBool(cfg.Tools.VerifyStreams)},
		{"History", history},
	}
}
