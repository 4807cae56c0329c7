package testutil

import (
	"context"
	"io"
	"sync"

	"photobak/internal/photobak"
)

// FailingStorage wraps a Storage and injects failures by operation and path.
// Every call is recorded so tests can assert which side effects happened.
type FailingStorage struct {
	photobak.Storage

	mu sync.Mutex
	// StatusErr makes Status return StateError for the given paths.
	StatusErr map[string]error
	// CreateErr, MoveErr and UploadErr fail the matching call for a path.
	CreateErr map[string]error
	MoveErr   map[string]error
	UploadErr map[string]error

	calls []string
}

var _ photobak.Storage = (*FailingStorage)(nil)

func NewFailingStorage(inner photobak.Storage) *FailingStorage {
	return &FailingStorage{
		Storage:   inner,
		StatusErr: make(map[string]error),
		CreateErr: make(map[string]error),
		MoveErr:   make(map[string]error),
		UploadErr: make(map[string]error),
	}
}

func (s *FailingStorage) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *FailingStorage) lookup(m map[string]error, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m[p]
}

func (s *FailingStorage) Status(ctx context.Context, p string) photobak.PathStatus {
	s.record("status " + p)
	if err := s.lookup(s.StatusErr, p); err != nil {
		return photobak.Failed(err)
	}
	return s.Storage.Status(ctx, p)
}

func (s *FailingStorage) CreateFolder(ctx context.Context, p string) error {
	s.record("create " + p)
	if err := s.lookup(s.CreateErr, p); err != nil {
		return err
	}
	return s.Storage.CreateFolder(ctx, p)
}

func (s *FailingStorage) MoveFolder(ctx context.Context, from, to string) error {
	s.record("move " + from + " " + to)
	if err := s.lookup(s.MoveErr, from); err != nil {
		return err
	}
	return s.Storage.MoveFolder(ctx, from, to)
}

func (s *FailingStorage) UploadFile(ctx context.Context, p string, r io.Reader, size int64) error {
	s.record("upload " + p)
	if err := s.lookup(s.UploadErr, p); err != nil {
		return err
	}
	return s.Storage.UploadFile(ctx, p, r, size)
}

// Calls returns every recorded call as "<op> <path>".
func (s *FailingStorage) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
