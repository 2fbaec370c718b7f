package engine

import (
	"errors"
	"fmt"
)

// RemoteError represents a failure reported by a remote collaborator
// (session provider, GraphQL endpoint, viewing tab).
//
// Remote errors are classified so the engine can pick a recovery path:
//   - AUTH: session invalidated, one forced-refresh retry
//   - TRANSIENT: logged, retried next tick
//   - EMPTY_RESULT: treated as a partial snapshot
//   - NOT_FOUND: the referenced entity does not exist upstream
type RemoteError struct {
	// Code identifies the error category.
	Code RemoteErrorCode

	// Op names the remote operation, e.g. "fetch_snapshot".
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// RemoteErrorCode categorizes remote errors.
type RemoteErrorCode string

const (
	// ErrCodeAuth indicates a 401/403 or integrity-check failure.
	ErrCodeAuth RemoteErrorCode = "AUTH"

	// ErrCodeTransient indicates a network or upstream hiccup.
	ErrCodeTransient RemoteErrorCode = "TRANSIENT"

	// ErrCodeEmptyResult indicates a well-formed response with no data.
	ErrCodeEmptyResult RemoteErrorCode = "EMPTY_RESULT"

	// ErrCodeNotFound indicates the requested entity does not exist.
	ErrCodeNotFound RemoteErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, msg, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError creates a RemoteError wrapping err.
func NewRemoteError(code RemoteErrorCode, op string, err error) *RemoteError {
	re := &RemoteError{Code: code, Op: op, Err: err}
	if err != nil {
		re.Message = err.Error()
	}
	return re
}

// IsAuthError returns true if the error is an authentication-class error.
// Uses errors.As to handle wrapped errors.
func IsAuthError(err error) bool {
	return remoteCode(err) == ErrCodeAuth
}

// IsTransientError returns true if the error is a transient remote error.
func IsTransientError(err error) bool {
	return remoteCode(err) == ErrCodeTransient
}

// IsEmptyResult returns true if the remote call succeeded with no data.
func IsEmptyResult(err error) bool {
	return remoteCode(err) == ErrCodeEmptyResult
}

// IsNotFound returns true if the remote entity does not exist.
func IsNotFound(err error) bool {
	return remoteCode(err) == ErrCodeNotFound
}

func remoteCode(err error) RemoteErrorCode {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// CommandError is returned by inbound commands that cannot be applied.
type CommandError struct {
	Code    CommandErrorCode
	Message string
}

// CommandErrorCode categorizes command failures.
type CommandErrorCode string

const (
	ErrCodeNoCampaign      CommandErrorCode = "NO_CAMPAIGN"
	ErrCodeNotRunning      CommandErrorCode = "NOT_RUNNING"
	ErrCodeInvalidArgument CommandErrorCode = "INVALID_ARGUMENT"
	ErrCodeNotQueued       CommandErrorCode = "NOT_QUEUED"
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func commandError(code CommandErrorCode, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CommandCode returns the command error code of err, or "" if err is not a
// CommandError.
func CommandCode(err error) CommandErrorCode {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
