package mux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"

	"mediafetch/internal/fileutil"
	"mediafetch/internal/logging"
	"mediafetch/internal/media/ffprobe"
	"mediafetch/internal/services"
)

// Tool resolves the path of an external binary on demand.
type Tool interface {
	Path(ctx context.Context) (string, error)
}

// Input is one intermediate file fed to the combiner.
type Input struct {
	Path  string
	Codec string
}

// Request describes one combine operation.
type Request struct {
	Video     Input
	Audio     Input
	Container string // output container, e.g. "mp4"
	Output    string // path written by ffmpeg; removed on failure
}

// Result reports a completed combine.
type Result struct {
	Path       string
	Bytes      int64
	VideoCodec string
	AudioCodec string
	Verified   bool
}

// commandRunner executes a tool and returns its stderr.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// prober inspects a media file.
type prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Muxer combines intermediates with ffmpeg.
type Muxer struct {
	ffmpeg  Tool
	ffprobe Tool
	logger  *slog.Logger
	run     commandRunner
	probe   prober
}

// NewMuxer constructs a combiner. ffprobeTool may be nil to skip
// verification.
func NewMuxer(ffmpegTool, ffprobeTool Tool, logger *slog.Logger) *Muxer {
	return &Muxer{
		ffmpeg:  ffmpegTool,
		ffprobe: ffprobeTool,
		logger:  logging.NewComponentLogger(logger, "mux"),
		run:     defaultCommandRunner,
		probe:   ffprobe.Inspect,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r commandRunner) {
	if m != nil && r != nil {
		m.run = r
	}
}

// WithProber allows injecting a custom ffprobe implementation for tests.
func (m *Muxer) WithProber(p prober) {
	if m != nil && p != nil {
		m.probe = p
	}
}

// Combine stream-copies the first video stream of req.Video and the first
// audio stream of req.Audio into req.Output. Inputs are left in place.
func (m *Muxer) Combine(ctx context.Context, req Request) (result Result, err error) {
	if m == nil || m.ffmpeg == nil {
		return Result{}, services.NewCombineError(services.SubToolMissing, "ffmpeg locator not configured", nil)
	}
	if strings.TrimSpace(req.Output) == "" {
		return Result{}, errors.New("combine: output path is required")
	}
	logger := logging.WithContext(ctx, m.logger)

	for _, in := range []Input{req.Video, req.Audio} {
		if _, statErr := fileutil.NonEmptyFile(in.Path); statErr != nil {
			return Result{}, services.NewStorageError("combining", "read input", statErr)
		}
	}

	container := strings.ToLower(strings.TrimSpace(req.Container))
	if ok, offender := Compatible(container, req.Video.Codec, req.Audio.Codec); !ok {
		return Result{}, services.NewCombineError(services.SubIncompatibleCodecs,
			fmt.Sprintf("%s cannot be stream-copied into %s", offender, container), nil)
	}

	binary, err := m.ffmpeg.Path(ctx)
	if err != nil {
		return Result{}, err
	}

	defer func() {
		if err != nil {
			if rmErr := fileutil.RemoveIfExists(req.Output); rmErr != nil {
				logging.WarnWithContext(logger, "combine output cleanup failed", "combine_cleanup_failed",
					logging.Path(req.Output),
					logging.Error(rmErr),
				)
			}
		}
	}()

	args := buildArgs(req, containers[container].format)
	logger.Debug("executing ffmpeg",
		logging.String("video", req.Video.Path),
		logging.String("audio", req.Audio.Path),
		logging.String("container", container),
	)
	stderr, runErr := m.run(ctx, binary, args...)
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, classifyRunError(runErr, string(stderr))
	}

	size, statErr := fileutil.NonEmptyFile(req.Output)
	if statErr != nil {
		return Result{}, services.NewCombineError(services.SubNonZeroExit, "ffmpeg produced no output", statErr)
	}

	result = Result{
		Path:       req.Output,
		Bytes:      size,
		VideoCodec: canonicalCodec(req.Video.Codec),
		AudioCodec: canonicalCodec(req.Audio.Codec),
	}
	verified, err := m.verify(ctx, logger, req, &result)
	if err != nil {
		return Result{}, err
	}
	result.Verified = verified

	logger.Info("streams combined",
		logging.String(logging.FieldEventType, "combine_complete"),
		logging.Path(req.Output),
		logging.Bytes(size),
		logging.Bool("verified", verified),
	)
	return result, nil
}

// verify confirms the output holds exactly one video and one audio stream
// with the input codecs. A missing ffprobe only downgrades to a warning.
func (m *Muxer) verify(ctx context.Context, logger *slog.Logger, req Request, result *Result) (bool, error) {
	if m.ffprobe == nil {
		return false, nil
	}
	binary, err := m.ffprobe.Path(ctx)
	if err == nil {
		var probed ffprobe.Result
		probed, err = m.probe(ctx, binary, req.Output)
		if err == nil {
			logger.Debug("combined output probed",
				logging.Int("video_streams", probed.VideoStreamCount()),
				logging.Int("audio_streams", probed.AudioStreamCount()),
				logging.Any("duration_seconds", probed.DurationSeconds()),
				logging.Int64("probed_bytes", probed.SizeBytes()),
			)
			return true, compareCodecs(probed, result)
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	logging.WarnWithContext(logger, "combined output not verified", "combine_verify_skipped",
		logging.Error(err),
		logging.String(logging.FieldImpact, "stream codecs were not checked after combine"),
		logging.String(logging.FieldErrorHint, "install ffprobe or set tools.ffprobe_path"),
	)
	return false, nil
}

func compareCodecs(probed ffprobe.Result, result *Result) error {
	video := probed.CodecsOf("video")
	audio := probed.CodecsOf("audio")
	if len(video) != 1 || len(audio) != 1 {
		return services.NewCombineError(services.SubNonZeroExit,
			fmt.Sprintf("verification: expected 1 video and 1 audio stream, found %d and %d", len(video), len(audio)), nil)
	}
	got := []string{canonicalCodec(video[0]), canonicalCodec(audio[0])}
	want := []string{result.VideoCodec, result.AudioCodec}
	for i := range want {
		if want[i] == "" {
			want[i] = got[i]
		}
	}
	if !slices.Equal(got, want) {
		return services.NewCombineError(services.SubNonZeroExit,
			fmt.Sprintf("verification: output codecs %s do not match inputs %s", strings.Join(got, "+"), strings.Join(want, "+")), nil)
	}
	result.VideoCodec, result.AudioCodec = got[0], got[1]
	return nil
}

func buildArgs(req Request, format string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-y",
		"-i", req.Video.Path,
		"-i", req.Audio.Path,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c", "copy",
		"-f", format,
		req.Output,
	}
}

func classifyRunError(err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return services.NewCombineError(services.SubToolMissing, "ffmpeg could not be executed", err)
	}
	detail := tail(stderr, 5)
	if isCodecRefusal(stderr) {
		return services.NewCombineError(services.SubIncompatibleCodecs, detail, err)
	}
	if detail == "" {
		detail = "ffmpeg failed"
	}
	return services.NewCombineError(services.SubNonZeroExit, detail, err)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
