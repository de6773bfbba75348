// Package storage keeps product images on local disk and serves them under /uploads.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrBucketMissing means the upload directory does not exist.
var ErrBucketMissing = errors.New("storage bucket is not provisioned")

// ObjectStorage stores opaque objects addressed by a slash-separated path.
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath string, data []byte) (string, error)
	Remove(ctx context.Context, objectPath string) error
	PathFromURL(publicURL string) (string, bool)
}

// URLPrefix is the route the upload directory is served from.
const URLPrefix = "/uploads/"

type localStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage stores objects below root. Public URLs are baseURL + /uploads/ + path.
func NewLocalStorage(root, baseURL string) ObjectStorage {
	return &localStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *localStorage) Upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			return "", ErrBucketMissing
		}
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return s.baseURL + URLPrefix + path.Clean(objectPath), nil
}

// Remove deletes the object; a missing object is not an error.
func (s *localStorage) Remove(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PathFromURL extracts the object path from a public URL issued by Upload.
func (s *localStorage) PathFromURL(publicURL string) (string, bool) {
	i := strings.Index(publicURL, URLPrefix)
	if i < 0 {
		return "", false
	}
	p := publicURL[i+len(URLPrefix):]
	if p == "" {
		return "", false
	}
	return p, true
}

func (s *localStorage) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.Contains(objectPath, "..") {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
