package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"photobak/internal/photobak"
)

// FileSystemStorage is a local directory implementation of the Storage
// interface. Backend paths map onto the directory tree below root:
//
//	<root>/
//	  <root folder>/
//	    <identity>/
//	      <likes>.jpg
//	      <identity>.json.txt
//	    archive/
//	      <identity>/
type FileSystemStorage struct {
	name string
	root string
}

// NewFileSystemStorage creates a filesystem storage rooted at the given path.
// The root directory is created if needed.
func NewFileSystemStorage(name, root string) (*FileSystemStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FileSystemStorage{name: name, root: root}, nil
}

// resolve maps a backend path to a local path that cannot escape root.
func (s *FileSystemStorage) resolve(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+p)))
}

// Status reports whether a file or folder exists at p.
func (s *FileSystemStorage) Status(_ context.Context, p string) photobak.PathStatus {
	_, err := os.Stat(s.resolve(p))
	switch {
	case err == nil:
		return photobak.Present()
	case errors.Is(err, fs.ErrNotExist):
		return photobak.Absent()
	default:
		return photobak.Failed(fmt.Errorf("stat %s: %w", p, err))
	}
}

// CreateFolder creates a single directory. The parent must exist.
func (s *FileSystemStorage) CreateFolder(_ context.Context, p string) error {
	if err := os.Mkdir(s.resolve(p), 0755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// MoveFolder renames a directory. The target must not exist.
func (s *FileSystemStorage) MoveFolder(_ context.Context, from, to string) error {
	src, dst := s.resolve(from), s.resolve(to)

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source folder not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source is not a folder: %s", from)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("target already exists: %s", to)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move folder: %w", err)
	}
	return nil
}

// UploadFile writes data from r to p using atomic write (temp file + rename).
func (s *FileSystemStorage) UploadFile(_ context.Context, p string, r io.Reader, size int64) error {
	destPath := s.resolve(p)

	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// ValidateSetup verifies that the root directory is accessible.
func (s *FileSystemStorage) ValidateSetup(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("storage root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root is not a directory: %s", s.root)
	}
	return nil
}

// Compile-time check that FileSystemStorage implements photobak.Storage interface
var _ photobak.Storage = (*FileSystemStorage)(nil)
