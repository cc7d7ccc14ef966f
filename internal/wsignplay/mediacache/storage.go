package mediacache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// blobStore keeps cached media as one file per key under rootDir
type blobStore struct {
	rootDir string
	logger  zerolog.Logger
}

// relativePath fans keys out over 256 subdirectories
func relativePath(key string) string {
	return filepath.Join(key[:2], key)
}

// Store writes r to the blob for key and returns its relative path and size.
// The blob appears atomically; a failed write leaves nothing behind.
func (s *blobStore) Store(ctx context.Context, key string, r io.Reader) (string, int64, error) {
	rel := relativePath(key)
	full := filepath.Join(s.rootDir, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, fmt.Errorf("create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".fetch-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return "", 0, fmt.Errorf("move file into place: %w", err)
	}

	s.logger.Debug().
		Str("path", full).
		Int64("size", n).
		Msg("blob stored")
	return rel, n, nil
}

// Path returns the absolute location of a relative blob path
func (s *blobStore) Path(rel string) string {
	return filepath.Join(s.rootDir, rel)
}

// Exists reports whether the blob file is present
func (s *blobStore) Exists(rel string) bool {
	info, err := os.Stat(s.Path(rel))
	return err == nil && info.Mode().IsRegular()
}

// Open opens a blob for reading
func (s *blobStore) Open(rel string) (*os.File, error) {
	return os.Open(s.Path(rel))
}

// CheckAccess verifies the cache directory exists and is a directory
func (s *blobStore) CheckAccess() error {
	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return fmt.Errorf("cannot create cache root: %w", err)
	}
	info, err := os.Stat(s.rootDir)
	if err != nil {
		return fmt.Errorf("cannot access cache root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache root is not a directory: %s", s.rootDir)
	}
	return nil
}
