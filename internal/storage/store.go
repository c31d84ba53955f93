// Package storage provides the photo blob store backends: MinIO for
// hosted deployments and a local directory for self-contained field
// laptops.
package storage

import (
	"context"
	"io"
)

// BlobStore stores and retrieves photo binaries by object key
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
