package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage provides a local-filesystem storage backend. Files live under a
// base directory, split into subdirectories for uploads, converted outputs
// and feedback records. Jobs use disjoint filenames, so no locking is
// needed.
type Storage struct {
	basePath string
}

// NewStorage creates a Storage rooted at basePath.
func NewStorage(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

// Save stores src in the given subdirectory under the provided filename and
// returns the path written. The context parameter exists for interface
// parity with remote backends.
func (s *Storage) Save(_ context.Context, subdir, filename string, src io.Reader) (string, error) {
	dir := filepath.Join(s.basePath, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dstPath := filepath.Join(dir, filename)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Load opens the named file and returns a reader.
func (s *Storage) Load(_ context.Context, subdir, filename string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, subdir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	return f, nil
}

// Delete removes the named file from storage.
func (s *Storage) Delete(_ context.Context, subdir, filename string) error {
	return os.Remove(filepath.Join(s.basePath, subdir, filename))
}
