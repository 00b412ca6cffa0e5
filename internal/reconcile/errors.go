package reconcile

import (
	"errors"
	"fmt"

	"github.com/erazemk/zaloga/internal/remote"
)

// Code classifies a failed reconciliation.
type Code string

// Failure codes.
const (
	// CodeAuth means the remote rejected credentials. Retrying will not
	// help until the credential is fixed.
	CodeAuth Code = "SYNC_AUTH_FAILED"
	// CodeSync covers every other failure.
	CodeSync Code = "SYNC_FAILED"
)

// Error is returned by ReconcileAll when an attempt fails.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func classify(err error) *Error {
	if errors.Is(err, remote.ErrUnauthorized) {
		return &Error{Code: CodeAuth, Message: "remote authentication failed", Err: err}
	}
	return &Error{Code: CodeSync, Message: "sync failed", Err: err}
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeAuth
}
