package storage

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/velocityfibre/fibrefield/internal/config"
)

// MinioStore keeps photo blobs in an S3-compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the photo bucket exists
func NewMinioStore(ctx context.Context, cfg config.PhotoConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Printf("🪣 [Storage] Created bucket %s", cfg.MinioBucket)
	}

	log.Printf("✅ [Storage] MinIO photo store ready at %s/%s", cfg.MinioEndpoint, cfg.MinioBucket)
	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// Put uploads a blob
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Get downloads a blob
func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	return obj, nil
}

// Delete removes a blob
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// Open selects the blob store backend from configuration: MinIO when an
// endpoint is configured, a local directory otherwise.
func Open(ctx context.Context, cfg config.PhotoConfig) (BlobStore, error) {
	if cfg.MinioEndpoint != "" {
		return NewMinioStore(ctx, cfg)
	}
	return NewLocalStore(cfg.LocalDir)
}
