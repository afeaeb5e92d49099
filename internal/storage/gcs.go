package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

func NewGCSStore(client *gcs.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	name, err := s.objectName(key)
	if err != nil {
		return 0, err
	}

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	n, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return 0, fmt.Errorf("failed to upload file to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return n, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := s.objectName(key)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch file from GCS: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read file from GCS: %w", err)
	}
	return content, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	name, err := s.objectName(key)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file from GCS: %w", err)
	}
	return nil
}

func (s *GCSStore) objectName(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return path.Join(s.prefix, cleaned), nil
}
