package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPermanentRemote matches remote failures that retrying cannot fix
	ErrPermanentRemote = errors.New("permanent remote error")
	// ErrTransientRemote matches remote failures that may succeed on retry
	ErrTransientRemote = errors.New("transient remote error")
)

// ValidationError reports a malformed or unsupported tracker event
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid task event: " + e.Reason
}

// RemoteError wraps a failed call to GitHub or the tracker. StatusCode is 0
// when no HTTP response was received (timeouts, connection resets, DNS).
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Permanent reports whether the status is 401, 403 or 404. Every other
// status, and a missing status, is treated as transient.
func (e *RemoteError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// Is lets callers test with errors.Is(err, ErrPermanentRemote)
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrPermanentRemote:
		return e.Permanent()
	case ErrTransientRemote:
		return !e.Permanent()
	}
	return false
}

// BranchExistsError is returned when the branch ref is already present.
// It is a terminal state, not a fault.
type BranchExistsError struct {
	Branch string
}

func (e *BranchExistsError) Error() string {
	return fmt.Sprintf("branch %s already exists", e.Branch)
}

// AuthError reports a failure to obtain a tracker credential
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("tracker authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status from a RemoteError in err's chain,
// or 0 when there is none.
func StatusCode(err error) int {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode
	}
	return 0
}
