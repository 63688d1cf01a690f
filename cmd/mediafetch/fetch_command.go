package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediafetch/internal/acquire"
	"mediafetch/internal/batch"
	"mediafetch/internal/config"
	"mediafetch/internal/history"
	"mediafetch/internal/logging"
	"mediafetch/internal/preflight"
	"mediafetch/internal/selector"
	"mediafetch/internal/services"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var intentFlag string
	var outputFlag string
	var workers int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "fetch [flags] URL...",
		Short: "Download one or more URLs",
		Long: `Resolve each URL, pick the best variant for the requested intent, and
save the result in the output directory. Jobs run concurrently; one failed
URL never stops the others. The exit status is 1 when any job failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			intent, err := selector.ParseIntent(intentFlag)
			if err != nil {
				return services.Wrap(services.ErrValidation, "", "--intent", err.Error(), nil)
			}
			if intent == selector.IntentVideoAudio {
				if err := checkMuxedContainer(cfg); err != nil {
					return err
				}
			}
			destDir := cfg.Paths.OutputDir
			if strings.TrimSpace(outputFlag) != "" {
				if destDir, err = config.ExpandPath(strings.TrimSpace(outputFlag)); err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
			}
			if check := preflight.CheckDirectoryAccess("Output directory", destDir); !check.Passed {
				return fmt.Errorf("output directory %s: %s", destDir, check.Detail)
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Batch.Workers
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			// Progress lines go to stderr when stdout carries JSON.
			progressOut := cmd.OutOrStdout()
			if jsonOutput {
				progressOut = cmd.ErrOrStderr()
			}
			printer := newJobPrinter(progressOut, len(args))

			opts := []batch.Option{
				batch.WithWorkers(workers),
				batch.WithSelectionOptions(selectionOptions(cfg)),
				batch.WithHooks(printer.hooks()),
			}
			if cfg.History.Enabled {
				store, err := history.Open(cfg.Paths.HistoryDB)
				if err != nil {
					logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "this run will not be recorded"),
						logging.String(logging.FieldErrorHint, "check paths.history_db or disable [history]"),
					)
				} else {
					defer store.Close()
					opts = append(opts, batch.WithRecorder(store))
				}
			}

			coordinator := batch.New(newResolver(cfg, logger), newEngine(cfg, logger), logger, opts...)
			report, err := coordinator.Run(cmd.Context(), args, intent, destDir)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, fetchReportJSON(report)); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out)
				fmt.Fprint(out, renderFetchResults(report))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "%d succeeded, %d failed\n", len(report.Results)-report.Failed(), report.Failed())
			}
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&intentFlag, "intent", "i", "both", "What to keep: audio, video, or both")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent jobs (defaults to batch.workers)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

// jobPrinter writes one line per job milestone. Hooks fire from worker
// goroutines, so writes are serialized.
type jobPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	total  int
	stages map[int]acquire.Stage
}

func newJobPrinter(out io.Writer, total int) *jobPrinter {
	return &jobPrinter{out: out, total: total, stages: make(map[int]acquire.Stage)}
}

func (p *jobPrinter) hooks() batch.Hooks {
	return batch.Hooks{
		JobStarted: func(pos int, url string) {
			p.printf(pos, "Resolving %s", url)
		},
		TitleResolved: func(pos int, title string) {
			p.printf(pos, "Title: %s", title)
		},
		Progress: func(pos int, ev acquire.Event) {
			if !p.stageChanged(pos, ev.Stage) {
				return
			}
			if label := stageLabel(ev.Stage); label != "" {
				p.printf(pos, "%s", label)
			}
		},
		JobFinished: func(res batch.JobResult) {
			if res.Succeeded() {
				p.printf(res.Position, "Saved %s (%s)", res.Path, humanBytes(res.Bytes))
				return
			}
			p.printf(res.Position, "Failed: %s", res.Err)
		},
	}
}

func (p *jobPrinter) stageChanged(pos int, stage acquire.Stage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stages[pos] == stage {
		return false
	}
	p.stages[pos] = stage
	return true
}

func (p *jobPrinter) printf(pos int, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := fmt.Sprintf("[%d/%d] ", pos+1, p.total)
	fmt.Fprintf(p.out, prefix+format+"\n", args...)
}

func stageLabel(stage acquire.Stage) string {
	switch stage {
	case acquire.StageFetchPrimary:
		return "Downloading"
	case acquire.StageFetchAudio:
		return "Downloading audio"
	case acquire.StageCombining:
		return "Combining video and audio"
	default:
		return ""
	}
}
