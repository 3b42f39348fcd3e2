package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileMediaStore caches fetched image bytes on the local filesystem,
// keyed by content hash so repeated ingests of the same bytes write once.
type FileMediaStore struct {
	baseDir string
}

// NewFileMediaStore constructs a filesystem-backed byte cache.
func NewFileMediaStore(baseDir string) (*FileMediaStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory must be provided")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &FileMediaStore{baseDir: baseDir}, nil
}

// SaveBytes persists the image bytes and returns the relative path.
// Existing files are left untouched.
func (s *FileMediaStore) SaveBytes(ctx context.Context, data []byte, ext string) (string, error) {
	if s == nil || len(data) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	name := hash[2:]
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	relative := filepath.Join(hash[:2], name)
	fullPath := filepath.Join(s.baseDir, relative)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create media subdir: %w", err)
	}
	if _, err := os.Stat(fullPath); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat media file: %w", err)
		}
		if err := os.WriteFile(fullPath, data, 0o644); err != nil {
			return "", fmt.Errorf("write media file: %w", err)
		}
	}
	return relative, nil
}
