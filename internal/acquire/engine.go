package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mediafetch/internal/catalog"
	"mediafetch/internal/fetch"
	"mediafetch/internal/fileutil"
	"mediafetch/internal/logging"
	"mediafetch/internal/mux"
	"mediafetch/internal/selector"
	"mediafetch/internal/services"
)

// Stage is one state of the acquisition state machine.
type Stage string

const (
	StageFetchPrimary Stage = "fetching(1)"
	StageFetchAudio   Stage = "fetching(2)"
	StageCombining    Stage = "combining"
	StageRenaming     Stage = "renaming"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Event reports a state transition or fetch progress.
type Event struct {
	JobID   string
	Stage   Stage
	Variant string
	Written int64
	Total   int64
}

// Observer receives events in order from the job's goroutine.
type Observer func(Event)

// Fetcher downloads one variant to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, variant catalog.Variant, dest string, progress fetch.Progress) (fetch.Result, error)
}

// Combiner stream-copies a video and an audio intermediate into one file.
type Combiner interface {
	Combine(ctx context.Context, req mux.Request) (mux.Result, error)
}

// Options carries the output naming policy.
type Options struct {
	// MuxedContainer is the container produced by combining a pair.
	MuxedContainer string
	// AudioExtension is the extension given to audio-only results. The
	// bytes are not converted.
	AudioExtension string
}

// FetchedFile is an intermediate written by the fetch step.
type FetchedFile struct {
	Path     string
	Variant  catalog.Variant
	Bytes    int64
	Attempts int
}

// FinalFile is a completed acquisition.
type FinalFile struct {
	Path     string
	Bytes    int64
	Variants []string
	Combined bool
	Verified bool
}

// Engine runs acquisitions. It is safe for concurrent use.
type Engine struct {
	fetcher  Fetcher
	combiner Combiner
	reserver *Reserver
	logger   *slog.Logger
	opts     Options
}

// NewEngine wires an engine. combiner may be nil when no pair will ever be
// requested; reserver may be nil to use a private one.
func NewEngine(fetcher Fetcher, combiner Combiner, reserver *Reserver, logger *slog.Logger, opts Options) *Engine {
	if reserver == nil {
		reserver = NewReserver()
	}
	if opts.MuxedContainer == "" {
		opts.MuxedContainer = "mp4"
	}
	return &Engine{
		fetcher:  fetcher,
		combiner: combiner,
		reserver: reserver,
		logger:   logging.NewComponentLogger(logger, "acquire"),
		opts:     opts,
	}
}

// job tracks the files one acquisition creates.
type job struct {
	id       string
	engine   *Engine
	logger   *slog.Logger
	observer Observer
	stage    Stage
	created  []string
}

// Acquire fetches the selected variants into destDir, combines pairs, and
// moves the result to its final name. Only a path confirmed on disk is
// returned.
func (e *Engine) Acquire(ctx context.Context, sel selector.Selection, destDir string, observer Observer) (final FinalFile, err error) {
	id, ok := services.JobIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
		ctx = services.WithJobID(ctx, id)
	}
	j := &job{
		id:       id,
		engine:   e,
		logger:   logging.WithContext(ctx, e.logger),
		observer: observer,
	}

	if sel.IsPair() && e.combiner == nil {
		return FinalFile{}, services.NewCombineError(services.SubToolMissing, "no combiner configured", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return FinalFile{}, storageError("prepare", "create output directory", err)
	}

	target, release, err := e.reserver.Reserve(destDir, sel.Title, e.extensionFor(sel), sel.URL)
	if err != nil {
		return FinalFile{}, services.NewStorageError("prepare", "choose final name", err)
	}
	defer release()
	stem := intermediateStem(target, id)

	defer func() {
		if r := recover(); r != nil {
			j.removeCreated()
			j.emit(Event{Stage: StageFailed})
			j.logger.Error("acquisition panicked",
				logging.String(logging.FieldStage, string(j.stage)),
				logging.Any("panic", r),
			)
			panic(r)
		}
		if err == nil {
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			err = services.NewCanceled(string(j.stage), err)
		}
		j.removeCreated()
		j.emit(Event{Stage: StageFailed})
		j.logger.Info("acquisition failed",
			logging.String(logging.FieldStage, string(j.stage)),
			logging.Kind(err),
			logging.Error(err),
		)
	}()

	primary, err := j.fetch(ctx, StageFetchPrimary, sel.Primary, stem+"."+string(sel.Primary.Kind)+".part")
	if err != nil {
		return FinalFile{}, err
	}
	source := primary.Path
	variants := []string{primary.Variant.ID}

	var combined mux.Result
	if sel.IsPair() {
		audio, err := j.fetch(ctx, StageFetchAudio, *sel.Audio, stem+".audio.part")
		if err != nil {
			return FinalFile{}, err
		}
		variants = append(variants, audio.Variant.ID)

		j.enter(StageCombining)
		muxedPath := stem + ".muxed.part"
		j.created = append(j.created, muxedPath)
		combined, err = e.combiner.Combine(ctx, mux.Request{
			Video:     mux.Input{Path: primary.Path, Codec: primary.Variant.VideoCodec},
			Audio:     mux.Input{Path: audio.Path, Codec: audio.Variant.AudioCodec},
			Container: e.opts.MuxedContainer,
			Output:    muxedPath,
		})
		if err != nil {
			return FinalFile{}, err
		}
		source = muxedPath
	}

	j.enter(StageRenaming)
	if err := os.Rename(source, target); err != nil {
		return FinalFile{}, storageError(string(StageRenaming), "rename to final name", err)
	}
	j.created = append(j.created, target)
	size, err := fileutil.NonEmptyFile(target)
	if err != nil {
		return FinalFile{}, storageError(string(StageRenaming), "confirm final file", err)
	}

	j.removeIntermediates(target)
	j.enter(StageDone)

	final = FinalFile{
		Path:     target,
		Bytes:    size,
		Variants: variants,
		Combined: sel.IsPair(),
		Verified: combined.Verified,
	}
	j.logger.Info("acquisition complete",
		logging.String(logging.FieldEventType, "acquire_complete"),
		logging.Path(target),
		logging.Bytes(size),
		logging.Bool("combined", final.Combined),
	)
	return final, nil
}

// extensionFor derives the final extension from the selection.
func (e *Engine) extensionFor(sel selector.Selection) string {
	switch {
	case sel.Intent == selector.IntentAudioOnly && e.opts.AudioExtension != "":
		return e.opts.AudioExtension
	case sel.IsPair():
		return e.opts.MuxedContainer
	default:
		return sel.Primary.Container
	}
}

// intermediateStem returns the hidden path prefix for a job's intermediates,
// e.g. "/out/.Title.1a2b3c4d" for target "/out/Title.mp4".
func intermediateStem(target, jobID string) string {
	dir := filepath.Dir(target)
	base := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
	short := strings.ReplaceAll(jobID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(dir, "."+base+"."+short)
}

func (j *job) fetch(ctx context.Context, stage Stage, variant catalog.Variant, dest string) (FetchedFile, error) {
	j.enter(stage)
	j.created = append(j.created, dest)
	res, err := j.engine.fetcher.Fetch(services.WithStage(ctx, string(stage)), variant, dest, func(written, total int64) {
		j.emit(Event{Stage: stage, Variant: variant.ID, Written: written, Total: total})
	})
	if err != nil {
		return FetchedFile{}, err
	}
	j.logger.Debug("variant fetched",
		logging.String("variant", variant.ID),
		logging.Bytes(res.Bytes),
		logging.Int("attempts", res.Attempts),
	)
	return FetchedFile{Path: dest, Variant: variant, Bytes: res.Bytes, Attempts: res.Attempts}, nil
}

func (j *job) enter(stage Stage) {
	j.stage = stage
	j.logger.Debug("stage entered", logging.String(logging.FieldStage, string(stage)))
	j.emit(Event{Stage: stage})
}

func (j *job) emit(ev Event) {
	if j.observer == nil {
		return
	}
	ev.JobID = j.id
	j.observer(ev)
}

// removeIntermediates deletes every file the job created except keep.
// Failures are reported and never fail the job.
func (j *job) removeIntermediates(keep string) {
	for _, path := range j.created {
		if path == keep {
			continue
		}
		if err := fileutil.RemoveIfExists(path); err != nil {
			logging.WarnWithContext(j.logger, "intermediate cleanup failed", "intermediate_cleanup_failed",
				logging.Path(path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "leftover .part file in output directory"),
				logging.String(logging.FieldErrorHint, "delete it manually"),
			)
		}
	}
}

// removeCreated deletes everything the job wrote, including a final file
// that failed confirmation.
func (j *job) removeCreated() {
	for _, path := range j.created {
		if err := fileutil.RemoveIfExists(path); err != nil {
			logging.WarnWithContext(j.logger, "failed job cleanup incomplete", "failed_cleanup_incomplete",
				logging.Path(path),
				logging.Error(err),
			)
		}
	}
}

func storageError(stage, op string, err error) error {
	if hint := fetch.StorageHint(err); hint != "" {
		op = fmt.Sprintf("%s (%s)", op, hint)
	}
	return services.NewStorageError(stage, op, err)
}
