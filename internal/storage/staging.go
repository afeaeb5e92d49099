package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrInvalidFilename = errors.New("invalid filename")

// Staging holds uploaded files per user until a dataset is created.
type Staging struct {
	baseDir string
}

func NewStaging(baseDir string) (*Staging, error) {
	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Staging{baseDir: baseDir}, nil
}

// Dir is the staging directory of a user.
func (s *Staging) Dir(userID uint) string {
	return filepath.Join(s.baseDir, strconv.FormatUint(uint64(userID), 10))
}

// Save stores r under filename. When the name is taken, "name (1).ext",
// "name (2).ext" and so on are tried. The stored name is returned.
func (s *Staging) Save(userID uint, filename string, r io.Reader) (string, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return "", err
	}

	dir := s.Dir(userID)
	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		//nolint:gosec,mnd // filemode constant
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create staged file: %w", err)
		}

		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write staged file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close staged file: %w", err)
		}
		return candidate, nil
	}
}

// Open opens a staged file or returns ErrNotFound.
func (s *Staging) Open(userID uint, filename string) (*os.File, error) {
	p, err := s.path(userID, filename)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G304: path is built from a validated filename
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// ReadFile returns the content of a staged file or ErrNotFound.
func (s *Staging) ReadFile(userID uint, filename string) ([]byte, error) {
	f, err := s.Open(userID, filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Staging) Exists(userID uint, filename string) bool {
	p, err := s.path(userID, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Remove deletes one staged file or returns ErrNotFound.
func (s *Staging) Remove(userID uint, filename string) error {
	p, err := s.path(userID, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove staged file: %w", err)
	}
	return nil
}

// Clear removes the whole staging directory of a user.
func (s *Staging) Clear(userID uint) error {
	if err := os.RemoveAll(s.Dir(userID)); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	return nil
}

func (s *Staging) path(userID uint, filename string) (string, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir(userID), name), nil
}

// cleanFilename drops any directory part of an uploaded name.
func cleanFilename(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	name = name[strings.LastIndexAny(name, "/\\")+1:]
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return name, nil
}
