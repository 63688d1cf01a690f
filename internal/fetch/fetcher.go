package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"mediafetch/internal/catalog"
	"mediafetch/internal/logging"
	"mediafetch/internal/services"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 10 * time.Second
	// Ranged requests keep each response small enough that throttled CDNs
	// serve it at full speed.
	defaultChunkSize = 10 << 20
)

// Progress receives the byte count written so far and the expected total
// (zero when unknown).
type Progress func(written, total int64)

// Result describes a completed download.
type Result struct {
	Path     string
	Bytes    int64
	Attempts int
}

// Fetcher downloads variant bytes to local files with bounded retry.
type Fetcher struct {
	client      *http.Client
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	chunkSize   int64
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxAttempts overrides the attempt bound (defaults to 3).
func WithMaxAttempts(attempts int) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.maxAttempts = attempts
		}
	}
}

// WithBackoff overrides the retry backoff delays.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = base
		f.maxDelay = maxDelay
	}
}

// WithChunkSize sets the ranged request size. Zero requests the whole body at once.
func WithChunkSize(size int64) Option {
	return func(f *Fetcher) {
		if size >= 0 {
			f.chunkSize = size
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(f *Fetcher) {
		if sleeper == nil {
			return
		}
		f.sleep = func(ctx context.Context, d time.Duration) error {
			sleeper(d)
			return ctx.Err()
		}
	}
}

// New constructs a Fetcher. The client should not carry an overall Timeout,
// since bodies can be large; bound header waits on the transport instead.
func New(client *http.Client, logger *slog.Logger, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		logger:      logging.NewComponentLogger(logger, "fetch"),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		chunkSize:   defaultChunkSize,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads variant to dest. Transient transport failures are retried
// with exponential backoff, resuming from the bytes already on disk. dest is
// removed when the fetch fails or is canceled.
func (f *Fetcher) Fetch(ctx context.Context, variant catalog.Variant, dest string, progress Progress) (result Result, err error) {
	logger := logging.WithContext(ctx, f.logger).With(logging.String("variant", variant.ID))
	result.Path = dest

	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.WarnWithContext(logger, "partial download cleanup failed", "partial_cleanup_failed",
				logging.Path(dest),
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "partial file left in output directory"),
			)
		}
	}()

	if variant.Locator == nil {
		return result, services.NewFetchError("", 0, "variant has no stream location", nil)
	}

	sampler := logging.NewProgressSampler(10)
	report := func(written, total int64) {
		if progress != nil {
			progress(written, total)
		}
		if sampler.ShouldLog(string(variant.Kind), written, total) {
			logger.Debug("download progress",
				logging.Int64("written", written),
				logging.Int64("total", total),
				logging.Any("percent", logging.Percent(written, total)),
			)
		}
	}

	var (
		streamURL string
		lastErr   error
	)
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		result.Attempts = attempt
		if streamURL == "" {
			streamURL, lastErr = variant.Locator.StreamURL(ctx)
			if lastErr != nil {
				lastErr = transient(lastErr)
			}
		}
		if lastErr == nil {
			var written int64
			written, lastErr = f.download(ctx, streamURL, dest, variant.ContentLength, report)
			if lastErr == nil {
				result.Bytes = written
				logger.Debug("download complete",
					logging.Bytes(written),
					logging.Int("attempts", attempt),
				)
				return result, nil
			}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		var classified *services.Error
		if errors.As(lastErr, &classified) && classified.Kind == services.KindStorage {
			return result, lastErr
		}
		var terminal *terminalError
		if errors.As(lastErr, &terminal) {
			return result, services.NewFetchError("", attempt, terminal.Error(), nil)
		}
		if attempt >= f.maxAttempts {
			break
		}

		delay := f.backoffDelay(attempt)
		logger.Info("download attempt failed, retrying",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", f.maxAttempts),
			logging.Duration("delay", delay),
			logging.Error(lastErr),
		)
		if err := f.sleep(ctx, delay); err != nil {
			return result, err
		}
		// the next attempt may restart from zero
		sampler.Reset()
	}

	return result, services.NewFetchError(services.SubTransport, result.Attempts, "giving up", lastErr)
}

// download runs one attempt, resuming from whatever dest already holds.
func (f *Fetcher) download(ctx context.Context, streamURL, dest string, expected int64, report Progress) (int64, error) {
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, storageError("open", err)
	}
	defer file.Close()

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, storageError("seek", err)
	}
	total := expected

	for {
		if total > 0 && offset >= total {
			break
		}
		end := int64(-1)
		if total > 0 && f.chunkSize > 0 {
			end = min(offset+f.chunkSize, total) - 1
		}

		resp, err := f.get(ctx, streamURL, offset, end)
		if err != nil {
			return offset, err
		}

		switch resp.StatusCode {
		case http.StatusPartialContent:
			start, size, ok := parseContentRange(resp.Header.Get("Content-Range"))
			if !ok || start != offset {
				resp.Body.Close()
				if err := restart(file); err != nil {
					return 0, err
				}
				return 0, transient(fmt.Errorf("server answered range %q for offset %d", resp.Header.Get("Content-Range"), offset))
			}
			if size > 0 {
				total = size
			}
		case http.StatusOK:
			if offset > 0 {
				if err := restart(file); err != nil {
					resp.Body.Close()
					return 0, err
				}
				offset = 0
			}
			if resp.ContentLength > 0 {
				total = resp.ContentLength
			}
			end = -1
		case http.StatusRequestedRangeNotSatisfiable:
			resp.Body.Close()
			if total > 0 && offset >= total {
				return offset, nil
			}
			if err := restart(file); err != nil {
				return 0, err
			}
			return 0, transient(errors.New("range not satisfiable; restarting from zero"))
		default:
			resp.Body.Close()
			return offset, statusError(resp)
		}

		n, err := copyBody(file, resp, offset, total, report)
		resp.Body.Close()
		offset += n
		if err != nil {
			return offset, err
		}
		if end < 0 {
			break
		}
	}

	if err := file.Sync(); err != nil {
		return offset, storageError("sync", err)
	}
	return offset, nil
}

func (f *Fetcher) get(ctx context.Context, streamURL string, offset, end int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, &terminalError{msg: "build request: " + err.Error()}
	}
	switch {
	case end >= 0:
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, end))
	case offset > 0:
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transient(err)
	}
	return resp, nil
}

func copyBody(file *os.File, resp *http.Response, offset, total int64, report Progress) (int64, error) {
	writer := &progressWriter{file: file, base: offset, total: total, report: report}
	n, err := io.Copy(writer, resp.Body)
	if err != nil {
		if writer.writeErr != nil {
			return n, storageError("write", writer.writeErr)
		}
		return n, transient(err)
	}
	if resp.ContentLength > 0 && n < resp.ContentLength {
		return n, transient(fmt.Errorf("short body: %d of %d bytes: %w", n, resp.ContentLength, io.ErrUnexpectedEOF))
	}
	return n, nil
}

type progressWriter struct {
	file     *os.File
	base     int64
	written  int64
	total    int64
	report   Progress
	writeErr error
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	w.written += int64(n)
	if err != nil {
		w.writeErr = err
		return n, err
	}
	if w.report != nil {
		w.report(w.base+w.written, w.total)
	}
	return n, nil
}

func restart(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return storageError("truncate", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return storageError("seek", err)
	}
	return nil
}

// parseContentRange reads "bytes start-end/size". size is zero when the
// server sends "*".
func parseContentRange(value string) (start, size int64, ok bool) {
	value = strings.TrimSpace(value)
	rest, found := strings.CutPrefix(value, "bytes ")
	if !found {
		return 0, 0, false
	}
	span, sizeText, found := strings.Cut(rest, "/")
	if !found {
		return 0, 0, false
	}
	startText, _, found := strings.Cut(span, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startText), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if sizeText != "*" {
		size, err = strconv.ParseInt(strings.TrimSpace(sizeText), 10, 64)
		if err != nil {
			return 0, 0, false
		}
	}
	return start, size, true
}

func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	if f.baseDelay <= 0 {
		return 0
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := f.baseDelay
	for i := 1; i < attempt; i++ {
		if f.maxDelay > 0 && delay > f.maxDelay/2 {
			return f.maxDelay
		}
		delay *= 2
	}
	if f.maxDelay > 0 && delay > f.maxDelay {
		return f.maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
