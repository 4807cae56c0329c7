package photobak

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or invalid configuration, including
	// absent credentials. It is raised before any network activity.
	ErrConfiguration = errors.New("configuration error")

	// ErrIdentityNotFound marks a handle that resolves to no account.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrBackend marks a failure of the storage backend or the source service.
	ErrBackend = errors.New("backend error")

	// ErrNameExhausted is returned by the probing collision policy when no
	// free file name is left.
	ErrNameExhausted = errors.New("no free file name")
)

// BackendError wraps a failed collaborator call with the operation and path
// it was made for. errors.Is(err, ErrBackend) holds for every BackendError.
type BackendError struct {
	Op   string
	Path string
	Err  error
}

func (e *BackendError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

func backendError(op, path string, err error) error {
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Path: path, Err: err}
}
