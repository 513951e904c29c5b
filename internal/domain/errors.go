package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested resource does not exist, either
// in the remote backend or in the last cached snapshot.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, departure before arrival).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrOffline is returned by every write attempted while the remote backend is
// unreachable. Writes are never queued for replay.
// Handlers should map this to HTTP 503 with code "offline".
var ErrOffline = errors.New("offline: remote backend is unreachable")

// RemoteError is returned by the remote gateway when the backend rejected or
// could not service a request. Err carries the backend's error payload.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemoteError wraps err as a *RemoteError for op. A nil err yields nil, and
// an err that is already a *RemoteError is returned unchanged.
func NewRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}

// IsRemote reports whether err originated in the remote gateway.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
