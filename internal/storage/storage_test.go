package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestUploadAndRemove(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, "http://localhost:8080/")
	ctx := context.Background()

	url, err := s.Upload(ctx, "org-1/1700000000000-mug.png", []byte("png"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if want := "http://localhost:8080/uploads/org-1/1700000000000-mug.png"; url != want {
		t.Errorf("Upload() url = %q, want %q", url, want)
	}
	if _, err := os.Stat(filepath.Join(root, "org-1", "1700000000000-mug.png")); err != nil {
		t.Fatalf("object not written: %v", err)
	}

	p, ok := s.PathFromURL(url)
	if !ok || p != "org-1/1700000000000-mug.png" {
		t.Fatalf("PathFromURL() = %q, %v", p, ok)
	}
	if err := s.Remove(ctx, p); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove(ctx, p); err != nil {
		t.Errorf("second Remove() should be a no-op, got %v", err)
	}
}

func TestUploadMissingBucket(t *testing.T) {
	s := NewLocalStorage(filepath.Join(t.TempDir(), "absent"), "http://x")
	if _, err := s.Upload(context.Background(), "org/a.png", []byte("x")); !errors.Is(err, ErrBucketMissing) {
		t.Fatalf("expected ErrBucketMissing, got %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "http://x")
	if _, err := s.Upload(context.Background(), "../escape.png", []byte("x")); err == nil {
		t.Fatal("expected path traversal to be rejected")
	}
}

func TestPathFromForeignURL(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "http://x")
	if _, ok := s.PathFromURL("https://cdn.example.com/img.png"); ok {
		t.Error("foreign URL should not map to an object path")
	}
}
