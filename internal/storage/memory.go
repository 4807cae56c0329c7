package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"photobak/internal/photobak"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Folders must be created before anything is written into them, like on a
// real remote disk. This implementation is safe for concurrent use.
type MemoryStorage struct {
	name    string
	folders map[string]struct{}
	files   map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new, empty in-memory storage with the given name.
func NewMemoryStorage(name string) *MemoryStorage {
	return &MemoryStorage{
		name:    name,
		folders: make(map[string]struct{}),
		files:   make(map[string][]byte),
	}
}

// cleanPath normalizes a backend path to the form used as map key.
func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// parentExists reports whether the parent folder of p exists. Top level
// entries always have a parent. Callers hold the lock.
func (m *MemoryStorage) parentExists(p string) bool {
	parent := path.Dir(p)
	if parent == "." || parent == "/" {
		return true
	}
	_, ok := m.folders[parent]
	return ok
}

// Status reports whether a file or folder exists at p.
func (m *MemoryStorage) Status(_ context.Context, p string) photobak.PathStatus {
	p = cleanPath(p)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.folders[p]; ok {
		return photobak.Present()
	}
	if _, ok := m.files[p]; ok {
		return photobak.Present()
	}
	return photobak.Absent()
}

// CreateFolder creates a single folder.
func (m *MemoryStorage) CreateFolder(_ context.Context, p string) error {
	p = cleanPath(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.folders[p]; ok {
		return fmt.Errorf("folder already exists: %s", p)
	}
	if _, ok := m.files[p]; ok {
		return fmt.Errorf("a file exists at: %s", p)
	}
	if !m.parentExists(p) {
		return fmt.Errorf("parent folder not found: %s", path.Dir(p))
	}
	m.folders[p] = struct{}{}
	return nil
}

// MoveFolder moves a folder and its contents.
func (m *MemoryStorage) MoveFolder(_ context.Context, from, to string) error {
	from, to = cleanPath(from), cleanPath(to)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.folders[from]; !ok {
		return fmt.Errorf("folder not found: %s", from)
	}
	if _, ok := m.folders[to]; ok {
		return fmt.Errorf("target already exists: %s", to)
	}
	if _, ok := m.files[to]; ok {
		return fmt.Errorf("target already exists: %s", to)
	}
	if !m.parentExists(to) {
		return fmt.Errorf("parent folder not found: %s", path.Dir(to))
	}
	if to == from || strings.HasPrefix(to, from+"/") {
		return fmt.Errorf("cannot move %s into itself", from)
	}

	prefix := from + "/"
	for p := range m.folders {
		if p == from || strings.HasPrefix(p, prefix) {
			delete(m.folders, p)
			m.folders[to+strings.TrimPrefix(p, from)] = struct{}{}
		}
	}
	for p, data := range m.files {
		if strings.HasPrefix(p, prefix) {
			delete(m.files, p)
			m.files[to+strings.TrimPrefix(p, from)] = data
		}
	}
	return nil
}

// UploadFile stores size bytes from r at p, replacing an existing file.
func (m *MemoryStorage) UploadFile(_ context.Context, p string, r io.Reader, size int64) error {
	p = cleanPath(p)

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.folders[p]; ok {
		return fmt.Errorf("a folder exists at: %s", p)
	}
	if !m.parentExists(p) {
		return fmt.Errorf("parent folder not found: %s", path.Dir(p))
	}
	m.files[p] = data
	return nil
}

// ValidateSetup always succeeds for in-memory storage.
func (m *MemoryStorage) ValidateSetup(context.Context) error {
	return nil
}

// ReadFile returns the content stored at p.
func (m *MemoryStorage) ReadFile(p string) ([]byte, error) {
	p = cleanPath(p)

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", p)
	}
	return bytes.Clone(data), nil
}

// List returns the sorted names of files directly inside folder.
func (m *MemoryStorage) List(folder string) []string {
	folder = cleanPath(folder)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for p := range m.files {
		if path.Dir(p) == folder {
			names = append(names, path.Base(p))
		}
	}
	sort.Strings(names)
	return names
}

// Compile-time check that MemoryStorage implements photobak.Storage interface
var _ photobak.Storage = (*MemoryStorage)(nil)
