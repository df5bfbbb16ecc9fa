package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileSystem is the slice of the local filesystem the worker touches
type FileSystem interface {
	// Exists reports whether path is an existing directory.
	Exists(path string) bool
	// ListRegularFiles returns the regular files directly under dir, sorted by name.
	ListRegularFiles(dir string) ([]string, error)
	Rename(oldPath, newPath string) error
}

// OSFileSystem is the FileSystem backed by the os package
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (OSFileSystem) ListRegularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (OSFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}
