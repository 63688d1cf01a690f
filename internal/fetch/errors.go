package fetch

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sys/unix"

	"mediafetch/internal/services"
)

// transientError marks a failure worth another attempt.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// terminalError marks an HTTP answer that retrying will not change.
type terminalError struct {
	msg string
}

func (e *terminalError) Error() string { return e.msg }

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("http %s", resp.Status)
	if body := strings.TrimSpace(string(snippet)); body != "" && len(body) < 200 {
		msg += ": " + body
	}
	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return transient(errors.New(msg))
	default:
		return &terminalError{msg: msg}
	}
}

func storageError(op string, err error) error {
	return services.NewStorageError("fetching", op+storageHint(err), err)
}

// storageHint names the common errno causes so users see them without
// reading the wrapped error text.
func storageHint(err error) string {
	switch {
	case errors.Is(err, unix.ENOSPC), errors.Is(err, unix.EDQUOT):
		return " (disk full)"
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM), errors.Is(err, unix.EROFS):
		return " (permission denied)"
	default:
		return ""
	}
}

// StorageHint exposes storageHint for other pipeline stages.
func StorageHint(err error) string {
	return strings.TrimSpace(strings.Trim(storageHint(err), " ()"))
}
