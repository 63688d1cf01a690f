package deps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// Requirement defines an external binary mediafetch relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// The binaries behind the combine step. FFprobe only verifies output, so a
// missing copy downgrades verification instead of failing jobs.
var (
	FFmpeg  = Requirement{Name: "FFmpeg", Command: "ffmpeg", Description: "Required to combine video and audio"}
	FFprobe = Requirement{Name: "FFprobe", Command: "ffprobe", Description: "Verifies combined output", Optional: true}
)

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string

	// Downloadable is set when a missing tool will be fetched on first use.
	Downloadable bool
}

// Check resolves req.Command. Bare names are searched on PATH; anything with
// a separator is checked in place.
func Check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err == nil {
		status.Command = resolved
		status.Available = true
		return status
	}
	switch {
	case !strings.ContainsRune(status.Command, os.PathSeparator):
		status.Detail = fmt.Sprintf("binary %q not found on PATH", status.Command)
	case errors.Is(err, fs.ErrNotExist):
		status.Detail = fmt.Sprintf("%s does not exist", status.Command)
	default:
		status.Detail = fmt.Sprintf("%s is not executable", status.Command)
	}
	return status
}
