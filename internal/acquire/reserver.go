package acquire

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"mediafetch/internal/catalog"
	"mediafetch/internal/fileutil"
	"mediafetch/internal/textutil"
)

// Reserver hands out final file names so concurrent jobs writing to one
// directory never pick the same path.
//
// The plain "<title>.<ext>" name is used when nobody holds it and nothing is
// on disk. Otherwise the name gains a short hash of the source URL,
// "<title>-<hash8>.<ext>"; an existing file with that hashed name came from
// the same URL and is replaced.
type Reserver struct {
	mu    sync.Mutex
	taken map[string]string // path -> source URL
}

// NewReserver constructs an empty reservation set.
func NewReserver() *Reserver {
	return &Reserver{taken: make(map[string]string)}
}

// ErrUnsafeName reports a final name that would not be a plain file directly
// inside the output directory.
var ErrUnsafeName = errors.New("unsafe output name")

// Reserve picks a final path for sourceURL and holds it until release is
// called. ext must be a bare token such as "mp4".
func (r *Reserver) Reserve(dir, title, ext, sourceURL string) (path string, release func(), err error) {
	base := textutil.SanitizeFileName(title)
	suffix := ""
	if ext != "" {
		if !catalog.ValidContainer(ext) {
			return "", nil, fmt.Errorf("%w: extension %q", ErrUnsafeName, ext)
		}
		suffix = "." + ext
	}

	plain := filepath.Join(dir, base+suffix)
	if filepath.Dir(plain) != filepath.Clean(dir) {
		return "", nil, fmt.Errorf("%w: %q escapes %s", ErrUnsafeName, base+suffix, dir)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.taken[plain]; !held && !fileutil.Exists(plain) {
		path, release = r.hold(plain, sourceURL)
		return path, release, nil
	}

	hashed := base + "-" + textutil.ShortHash(sourceURL)
	candidate := filepath.Join(dir, hashed+suffix)
	for n := 2; ; n++ {
		if _, held := r.taken[candidate]; !held {
			path, release = r.hold(candidate, sourceURL)
			return path, release, nil
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", hashed, n, suffix))
	}
}

func (r *Reserver) hold(path, sourceURL string) (string, func()) {
	r.taken[path] = sourceURL
	var once sync.Once
	return path, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.taken, path)
			r.mu.Unlock()
		})
	}
}
