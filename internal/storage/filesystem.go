package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilesystemStore keeps objects as files under a base directory.
type FilesystemStore struct {
	baseDir string
}

func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

// Put writes to a temporary file next to the target and renames it into
// place, so readers never observe a partial file.
func (s *FilesystemStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	target, err := s.path(key)
	if err != nil {
		return 0, err
	}

	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

func (s *FilesystemStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G304: path is built from a validated key
	content, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (s *FilesystemStore) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}
