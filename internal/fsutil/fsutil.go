// Package fsutil is the filesystem boundary of the build pipeline:
// existence checks, modification times, directory management, and the
// small amount of file I/O the tracker needs.
package fsutil

import (
	"os"
	"path/filepath"
	"time"
)

// FS is the filesystem surface the resolver, planner, and pipeline
// depend on. Tests substitute it to observe or deny mutations.
type FS interface {
	// Exists reports whether the path can be stat'ed.
	Exists(path string) bool
	// MTime returns the modification time of the file at path.
	MTime(path string) (time.Time, error)
	// MkdirAll creates the directory and any missing parents.
	MkdirAll(path string) error
	// RemoveAll removes the path and everything below it.
	RemoveAll(path string) error
	// ReadDirNames returns the entry names of a directory in sorted order.
	ReadDirNames(path string) ([]string, error)
	// ReadFile returns the contents of the file at path.
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces the file at path atomically.
	WriteFile(path string, data []byte) error
}

// OS implements FS directly on the host filesystem.
type OS struct{}

// Exists reports whether the path can be stat'ed.
func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MTime returns the modification time of the file at path.
func (OS) MTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// MkdirAll creates the directory and any missing parents.
func (OS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o750)
}

// RemoveAll removes the path and everything below it.
func (OS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// ReadDirNames returns the entry names of a directory in sorted order.
func (OS) ReadDirNames(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// ReadFile returns the contents of the file at path.
func (OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path) // #nosec G304 -- paths are derived from the build plan
}

// WriteFile writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial file.
func (OS) WriteFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}
