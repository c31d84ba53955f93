package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps photo blobs under a directory on the field laptop
type LocalStore struct {
	dir string
}

// NewLocalStore creates (if needed) and opens a directory-backed store
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(key string) string {
	// Keys are "<captureID>/<photoID>"; keep that one level of nesting
	return filepath.Join(s.dir, filepath.Clean("/"+key))
}

// Put writes a blob to disk
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// Get opens a stored blob
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open photo %s: %w", key, err)
	}
	return f, nil
}

// Delete removes a stored blob; missing blobs are not an error
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	// Drop the capture directory once empty
	if dir := filepath.Dir(s.path(key)); strings.HasPrefix(dir, s.dir) {
		_ = os.Remove(dir)
	}
	return nil
}
