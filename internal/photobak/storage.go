package photobak

import (
	"context"
	"io"
)

// PathState is the existence state of a path in the destination namespace.
type PathState int

const (
	StateAbsent PathState = iota
	StatePresent
	StateError
)

func (s PathState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	default:
		return "error"
	}
}

// PathStatus is the result of a single existence query.
// Err is set only when State is StateError.
type PathStatus struct {
	State PathState
	Err   error
}

func Absent() PathStatus  { return PathStatus{State: StateAbsent} }
func Present() PathStatus { return PathStatus{State: StatePresent} }

// Failed reports a query that could not determine existence.
func Failed(err error) PathStatus { return PathStatus{State: StateError, Err: err} }

// Storage provides an interface for destination backends.
// Paths are slash separated and relative to the backend's own root.
type Storage interface {
	// Status reports whether a file or folder exists at path.
	// Backends must report failures as StateError, never as StateAbsent.
	Status(ctx context.Context, path string) PathStatus

	// CreateFolder creates a single folder. The parent must already exist.
	CreateFolder(ctx context.Context, path string) error

	// MoveFolder moves a folder and everything under it to a new path.
	// The target must not exist; its parent must.
	MoveFolder(ctx context.Context, from, to string) error

	// UploadFile writes size bytes read from r to path, replacing any file
	// already there.
	UploadFile(ctx context.Context, path string, r io.Reader, size int64) error

	// ValidateSetup verifies that the backend is reachable and configured.
	ValidateSetup(ctx context.Context) error
}
