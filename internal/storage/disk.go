package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge    = errors.New("file exceeds the upload size limit")
	ErrInvalidPath = errors.New("invalid storage path")
)

// DiskStore stores attachment blobs under a local directory and derives
// publicly fetchable URLs from stored paths.
type DiskStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewDiskStore(dir, baseURL string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Save writes the blob and returns its stored path, shaped
// <ownerID>/<unix-nano>.<ext>. The original filename only contributes
// its extension; the rest is never trusted.
func (s *DiskStore) Save(ownerID uuid.UUID, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	stored := path.Join(ownerID.String(), fmt.Sprintf("%d%s", time.Now().UnixNano(), ext))

	abs, err := s.resolve(stored)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("creating owner dir: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("creating blob file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		os.Remove(abs)
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if n > s.maxBytes {
		os.Remove(abs)
		return "", ErrTooLarge
	}

	return stored, nil
}

// PublicURL derives the fetchable URL for a stored path.
func (s *DiskStore) PublicURL(stored string) string {
	return s.baseURL + "/media/" + stored
}

// Open returns the blob for a stored path, guarding against paths that
// escape the storage directory.
func (s *DiskStore) Open(stored string) (*os.File, os.FileInfo, error) {
	abs, err := s.resolve(stored)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, ErrInvalidPath
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

func (s *DiskStore) resolve(stored string) (string, error) {
	if stored == "" || strings.Contains(stored, "..") || strings.HasPrefix(stored, "/") {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(filepath.FromSlash(stored))
	if strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.dir, clean), nil
}
