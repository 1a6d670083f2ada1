//go:build gcp

package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore persists evidence packs in Google Cloud Storage. Packs are
// keyed by their SHA-256 hash, so uploads are idempotent.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSStoreConfig holds configuration for GCSStore.
type GCSStoreConfig struct {
	Bucket string
	Prefix string
}

// NewGCSStore creates a GCS-backed evidence store using ADC.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: create GCS client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *GCSStore) Store(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hashStr := hex.EncodeToString(sum[:])
	prefixedHash := "sha256:" + hashStr

	objectPath := s.prefix + hashStr + ".zip"

	obj := s.client.Bucket(s.bucket).Object(objectPath)
	if _, err := obj.Attrs(ctx); err == nil {
		return prefixedHash, nil
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/zip"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("audit: gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("audit: gcs close: %w", err)
	}

	return prefixedHash, nil
}

// Get retrieves an evidence pack by its content hash.
func (s *GCSStore) Get(ctx context.Context, hash string) ([]byte, error) {
	if len(hash) < 7 || hash[:7] != "sha256:" {
		return nil, fmt.Errorf("audit: invalid hash format: %s", hash)
	}
	objectPath := s.prefix + hash[7:] + ".zip"

	reader, err := s.client.Bucket(s.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: gcs get %s: %w", hash, err)
	}
	defer func() { _ = reader.Close() }()

	return io.ReadAll(reader)
}
