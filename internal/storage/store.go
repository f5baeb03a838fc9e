// Package storage holds uploaded case-study screenshots. The hosted
// object store is abstracted behind BlobStore; the bundled implementation
// writes to local disk and serves files under a public URL prefix.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	errMissingDirectory = errors.New("storage: directory is required")
	errMissingBaseURL   = errors.New("storage: public base url is required")
	// ErrInvalidName rejects stored names that would escape the store root.
	ErrInvalidName = errors.New("storage: invalid object name")
)

// BlobStore persists named blobs and exposes them at public URLs.
type BlobStore interface {
	Put(name string, data []byte) (url string, err error)
}

// DiskStore is a BlobStore backed by a local directory.
type DiskStore struct {
	directory string
	baseURL   string
}

// NewDiskStore constructs a DiskStore rooted at directory, creating it if
// missing. baseURL is the public prefix files are served under.
func NewDiskStore(directory, baseURL string) (*DiskStore, error) {
	directory = strings.TrimSpace(directory)
	if directory == "" {
		return nil, errMissingDirectory
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	return &DiskStore{directory: directory, baseURL: baseURL}, nil
}

// Directory returns the local root the store writes into.
func (s *DiskStore) Directory() string {
	return s.directory
}

// Put writes the blob under name and returns its public URL.
func (s *DiskStore) Put(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := filepath.Join(s.directory, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write blob: %w", err)
	}
	return s.baseURL + "/" + name, nil
}
