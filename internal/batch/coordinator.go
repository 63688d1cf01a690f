package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediafetch/internal/acquire"
	"mediafetch/internal/catalog"
	"mediafetch/internal/history"
	"mediafetch/internal/logging"
	"mediafetch/internal/selector"
	"mediafetch/internal/services"
)

const (
	defaultWorkers = 2
	maxWorkers     = 16
	lockFileName   = ".mediafetch.lock"
)

// ErrDirectoryBusy reports that another mediafetch process holds the
// destination directory lock.
var ErrDirectoryBusy = errors.New("destination directory is in use by another mediafetch process")

// Acquirer turns a selection into a final file.
type Acquirer interface {
	Acquire(ctx context.Context, sel selector.Selection, destDir string, observer acquire.Observer) (acquire.FinalFile, error)
}

// Recorder persists job outcomes.
type Recorder interface {
	Record(ctx context.Context, entries ...history.Entry) error
}

// Hooks receive job lifecycle callbacks. Callbacks for different jobs may run
// concurrently; callbacks for one job arrive in order.
type Hooks struct {
	JobStarted    func(position int, url string)
	TitleResolved func(position int, title string)
	Progress      func(position int, ev acquire.Event)
	JobFinished   func(result JobResult)
}

// Coordinator runs batches.
type Coordinator struct {
	resolver  catalog.Resolver
	acquirer  Acquirer
	recorder  Recorder
	logger    *slog.Logger
	workers   int
	selection selector.Options
	hooks     Hooks
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers sets the pool size, clamped to 1..16.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = clampWorkers(n)
	}
}

// WithRecorder appends every finished batch to a history journal.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// WithSelectionOptions sets the variant filters passed to the selector.
func WithSelectionOptions(opts selector.Options) Option {
	return func(c *Coordinator) {
		c.selection = opts
	}
}

// WithHooks installs lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Coordinator) {
		c.hooks = h
	}
}

// New constructs a Coordinator.
func New(resolver catalog.Resolver, acquirer Acquirer, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver: resolver,
		acquirer: acquirer,
		logger:   logging.NewComponentLogger(logger, "batch"),
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes every URL with the same intent and returns one result per
// URL in input order. The error is non-nil only when the batch could not
// start at all.
func (c *Coordinator) Run(ctx context.Context, urls []string, intent selector.Intent, destDir string) (Report, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Report{RunID: runID}, services.NewStorageError("prepare", "create output directory", err)
	}
	lock := flock.New(filepath.Join(destDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return Report{RunID: runID}, services.NewStorageError("prepare", "lock output directory", err)
	}
	if !locked {
		return Report{RunID: runID}, fmt.Errorf("%w: %s", ErrDirectoryBusy, destDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(logger, "failed to release directory lock", "lock_release_failed", logging.Error(err))
		}
	}()

	workers := min(c.workers, max(len(urls), 1))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("jobs", len(urls)),
		logging.Int("workers", workers),
		logging.String("intent", string(intent)),
		logging.String("dest", destDir),
	)

	results := make([]JobResult, len(urls))
	positions := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range positions {
				results[pos] = c.runJob(ctx, pos, urls[pos], intent, destDir)
				if c.hooks.JobFinished != nil {
					c.hooks.JobFinished(results[pos])
				}
			}
		}()
	}

	next := 0
feed:
	for ; next < len(urls); next++ {
		select {
		case positions <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(positions)
	wg.Wait()

	// Jobs never handed to a worker still get a result.
	for pos := next; pos < len(urls); pos++ {
		now := time.Now()
		results[pos] = JobResult{
			Position:   pos,
			JobID:      uuid.NewString(),
			URL:        urls[pos],
			Intent:     intent,
			Err:        services.NewCanceled("queued", ctx.Err()),
			StartedAt:  now,
			FinishedAt: now,
		}
		if c.hooks.JobFinished != nil {
			c.hooks.JobFinished(results[pos])
		}
	}

	report := Report{RunID: runID, Results: results}
	c.record(logger, report)
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("jobs", len(results)),
		logging.Int("failed", report.Failed()),
	)
	return report, nil
}

// runJob executes one pipeline. A panic is converted into a failed result.
func (c *Coordinator) runJob(ctx context.Context, pos int, rawURL string, intent selector.Intent, destDir string) (result JobResult) {
	jobID := uuid.NewString()
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldURL, rawURL))
	result = JobResult{Position: pos, JobID: jobID, URL: strings.TrimSpace(rawURL), Intent: intent, StartedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "job panicked", "job_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			result.Path = ""
			result.Err = &services.Error{Kind: services.KindInternal, Stage: "job", Message: fmt.Sprintf("panic: %v", r)}
		}
		result.FinishedAt = time.Now()
		c.logOutcome(logger, result)
	}()

	if c.hooks.JobStarted != nil {
		c.hooks.JobStarted(pos, result.URL)
	}
	if err := ctx.Err(); err != nil {
		result.Err = services.NewCanceled("queued", err)
		return result
	}

	cat, err := c.resolver.Resolve(ctx, result.URL)
	if err != nil {
		result.Err = canceledOr(ctx, "resolve", err)
		return result
	}
	result.Title = cat.Title
	if c.hooks.TitleResolved != nil {
		c.hooks.TitleResolved(pos, cat.Title)
	}

	sel, err := selector.Select(cat, intent, c.selection)
	if err != nil {
		result.Err = err
		return result
	}
	logger.Debug("variants selected",
		logging.String("primary", sel.Primary.Label()),
		logging.Bool("pair", sel.IsPair()),
		logging.Bool("already_muxed", sel.AlreadyMuxed()),
	)

	var observer acquire.Observer
	if c.hooks.Progress != nil {
		observer = func(ev acquire.Event) { c.hooks.Progress(pos, ev) }
	}
	final, err := c.acquirer.Acquire(ctx, sel, destDir, observer)
	if err != nil {
		result.Err = canceledOr(ctx, "acquire", err)
		return result
	}
	result.Path = final.Path
	result.Bytes = final.Bytes
	result.Combined = final.Combined
	return result
}

func (c *Coordinator) logOutcome(logger *slog.Logger, result JobResult) {
	if result.Succeeded() {
		logger.Info("job succeeded",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Path(result.Path),
			logging.Bytes(result.Bytes),
			logging.Duration(logging.FieldDuration, result.Duration()),
		)
		return
	}
	logger.Warn("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorKind, result.ErrorKind()),
		logging.Bool("retryable", services.Retryable(result.Err)),
		logging.Error(result.Err),
	)
}

func (c *Coordinator) record(logger *slog.Logger, report Report) {
	if c.recorder == nil || len(report.Results) == 0 {
		return
	}
	entries := make([]history.Entry, 0, len(report.Results))
	for _, r := range report.Results {
		entries = append(entries, historyEntry(report.RunID, r))
	}
	// Recording happens after cancellation too, so it must not inherit it.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.recorder.Record(ctx, entries...); err != nil {
		logging.WarnWithContext(logger, "failed to record batch history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in mediafetch history"),
		)
	}
}

// canceledOr reclassifies an error caused by ctx cancellation.
func canceledOr(ctx context.Context, stage string, err error) error {
	if errors.Is(err, services.ErrCanceled) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return services.NewCanceled(stage, err)
	}
	return err
}

func clampWorkers(n int) int {
	switch {
	case n < 1:
		return 1
	case n > maxWorkers:
		return maxWorkers
	default:
		return n
	}
}
