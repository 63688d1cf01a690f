package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"mediafetch/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check tools, directories, and catalog reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			ffmpeg, ffprobe := toolLocators(cfg, logger)
			var client *http.Client
			if !offline {
				client = metadataClient(cfg)
			}

			lines := renderSectionHeader("Tools", colorize)
			lines = append(lines, toolLines(preflight.ToolStatuses(ffmpeg, ffprobe), colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			lines = append(lines, checkLines(preflight.RunAll(cmd.Context(), cfg, client), colorize)...)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the catalog reachability check")
	return cmd
}
