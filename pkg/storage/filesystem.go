package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage persists downloaded result bundles and exports on disk under
// a base directory. Names handed in from remote headers are reduced to their
// base name so nothing is written outside the base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./downloads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes the given bytes under the base dir and returns the stored name.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	name, err := SafeName(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.resolve(name), data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

// SaveStream copies from reader into the target file and returns the stored
// name and the number of bytes written. Partial files are removed on error.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (string, int64, error) {
	name, err := SafeName(filename)
	if err != nil {
		return "", 0, err
	}
	path := s.resolve(name)
	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}
	written, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr != nil {
			return "", 0, fmt.Errorf("write stream: %w", copyErr)
		}
		return "", 0, fmt.Errorf("close file: %w", closeErr)
	}
	return name, written, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	name, err := SafeName(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	name, err := SafeName(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files older than the provided TTL and returns deleted names.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("cleanup downloads: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("cleanup downloads: %w", err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(s.resolve(entry.Name())); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("cleanup downloads: %w", err)
		}
		deleted = append(deleted, entry.Name())
	}
	return deleted, nil
}

// Path exposes the absolute location of a stored file.
func (s *LocalStorage) Path(filename string) string {
	name, err := SafeName(filename)
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(s.resolve(name))
	if err != nil {
		return s.resolve(name)
	}
	return abs
}

// SafeName strips directory components from a file name.
func SafeName(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	return name, nil
}

func (s *LocalStorage) resolve(name string) string {
	return filepath.Join(s.baseDir, name)
}
