// Package gcs stores exported reports in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Config names the destination bucket.
type Config struct {
	Bucket string
	// CacheControl is set on every uploaded report when non-empty.
	CacheControl string
}

// BlobStore uploads reports as single objects.
type BlobStore struct {
	client *storage.Client
	cfg    Config
}

// New wraps an existing storage client. Close releases it.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	switch {
	case client == nil:
		return nil, errors.New("gcs: storage client is required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("gcs: bucket name is required")
	}
	return &BlobStore{client: client, cfg: cfg}, nil
}

// PutObject uploads the report under name and returns its gs:// URI. The
// body is sent with its CRC32C checksum.
func (s *BlobStore) PutObject(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", errors.New("gcs: object name is required")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("gcs: read report %s: %w", name, err)
	}

	w := s.client.Bucket(s.cfg.Bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = s.cfg.CacheControl
	w.CRC32C = crc32.Checksum(body, castagnoli)
	w.SendCRC32C = true
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize %s: %w", name, err)
	}
	return "gs://" + s.cfg.Bucket + "/" + name, nil
}

// Close releases the underlying storage client.
func (s *BlobStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
