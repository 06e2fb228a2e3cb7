package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrEditPending is returned by Deliver while an earlier edit has not
	// been applied yet.
	ErrEditPending      = errors.New("an edit is already pending")
	ErrSubmitInProgress = errors.New("a note is already being saved")
	ErrUnknownNote      = errors.New("note is not in the current list")
)

// ValidationError blocks an action before any I/O happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RemoteError wraps a failed store, image, auth or notification call.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// PermissionDeniedError means the feature stays off for the rest of the
// session.
type PermissionDeniedError struct {
	Feature string
}

func (e *PermissionDeniedError) Error() string {
	return e.Feature + " permission denied"
}
