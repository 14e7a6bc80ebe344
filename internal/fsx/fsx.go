// Package fsx writes generated files without ever leaving a partial result
// at the destination path.
package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// renameFunc is swapped in tests to simulate a failing rename.
var renameFunc = os.Rename

// PathTypeConflictError reports a destination that exists but is not a
// regular file.
type PathTypeConflictError struct {
	Path string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("output path %s is a %s, not a file", e.Path, e.Got)
}

// IsPathTypeConflict reports whether err is a *PathTypeConflictError.
func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CheckDestination returns a *PathTypeConflictError when path exists and is
// not a regular file. A missing path is fine.
func CheckDestination(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.Mode().IsRegular() {
		return nil
	}
	got := "special file"
	if info.IsDir() {
		got = "directory"
	}
	return &PathTypeConflictError{Path: path, Got: got}
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory, synced, closed and renamed over path. Missing parent
// directories are created. On failure the temp file is removed and any
// existing file at path is untouched.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := CheckDestination(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp output file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err := renameFunc(tmpName, path); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
