package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams r into a temporary sibling of dst, applies mode, and
// renames it over dst. The temporary file is removed on any failure.
func WriteAtomic(dst string, r io.Reader, mode os.FileMode) (written int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	written, err = io.Copy(tmp, r)
	if err != nil {
		return written, err
	}
	if err = tmp.Sync(); err != nil {
		return written, err
	}
	if err = tmp.Close(); err != nil {
		return written, err
	}
	if err = os.Chmod(tmpPath, mode); err != nil {
		return written, err
	}
	if err = os.Rename(tmpPath, dst); err != nil {
		return written, err
	}
	return written, nil
}

// RemoveIfExists deletes path, treating an already missing file as success.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// NonEmptyFile confirms path is a regular file with at least one byte and
// returns its size.
func NonEmptyFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%s is empty", path)
	}
	return info.Size(), nil
}

// Exists reports whether anything is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
