package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mediafetch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent fetch results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled (set [history] enabled = true)")
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, historyEntriesJSON(entries))
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No fetches recorded yet")
				return nil
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("history stats: %w", err)
			}
			fmt.Fprint(out, renderHistory(entries))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%d jobs across %d runs, %d failed\n", stats.Total, stats.Runs, stats.Failed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}
