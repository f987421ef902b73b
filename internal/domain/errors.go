// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions.
var (
	ErrAlreadyWatched   = errors.New("directory is already watched")
	ErrNotFound         = errors.New("directory is not registered")
	ErrNotDirectory     = errors.New("path is not a directory")
	ErrInvalidPath      = errors.New("invalid path")
	ErrUnknownHandle    = errors.New("unknown subscription handle")
	ErrNotifierClosed   = errors.New("notifier is closed")
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
	ErrUnknownCommand   = errors.New("unknown command")
)

// Error codes for client responses.
const (
	ErrCodeAlreadyWatched     = "ALREADY_WATCHED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidPath        = "INVALID_PATH"
	ErrCodeSubscriptionFailed = "SUBSCRIPTION_FAILED"
	ErrCodeInvalidPayload     = "INVALID_PAYLOAD"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// SubscriptionError is returned when the notification backend rejects a path,
// e.g. because it does not exist or cannot be read.
type SubscriptionError struct {
	Path string
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribe %s: %v", e.Path, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// NewSubscriptionError creates a new SubscriptionError.
func NewSubscriptionError(path string, err error) *SubscriptionError {
	return &SubscriptionError{
		Path: path,
		Err:  err,
	}
}

// PersistenceReadError means the stored watch list was absent or malformed.
// Callers recover from it by using an empty list.
type PersistenceReadError struct {
	Key string
	Err error
}

func (e *PersistenceReadError) Error() string {
	return fmt.Sprintf("read persisted %q: %v", e.Key, e.Err)
}

func (e *PersistenceReadError) Unwrap() error {
	return e.Err
}

// NewPersistenceReadError creates a new PersistenceReadError.
func NewPersistenceReadError(key string, err error) *PersistenceReadError {
	return &PersistenceReadError{
		Key: key,
		Err: err,
	}
}

// CompileError represents a failed external compiler invocation.
type CompileError struct {
	Source   string // Source file that was compiled
	ExitCode int    // Exit code if the process exited
	Stderr   string // Trimmed compiler diagnostics
	Err      error  // Underlying error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compile %s", e.Source)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, ": exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// NewCompileError creates a new CompileError.
func NewCompileError(source string, err error, exitCode int, stderr string) *CompileError {
	return &CompileError{
		Source:   source,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
		Err:      err,
	}
}

// ErrorCode maps an error to the code sent to API clients.
func ErrorCode(err error) string {
	var subErr *SubscriptionError
	switch {
	case errors.Is(err, ErrAlreadyWatched):
		return ErrCodeAlreadyWatched
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrInvalidPath), errors.Is(err, ErrNotDirectory):
		return ErrCodeInvalidPath
	case errors.As(err, &subErr):
		return ErrCodeSubscriptionFailed
	case errors.Is(err, ErrUnknownCommand):
		return ErrCodeInvalidPayload
	default:
		return ErrCodeInternalError
	}
}

// FailedPaths returns the directories named by the SubscriptionErrors in
// err, which may be a single error or an errors.Join of several.
func FailedPaths(err error) []string {
	if err == nil {
		return nil
	}

	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var paths []string
	for _, e := range errs {
		var subErr *SubscriptionError
		if errors.As(e, &subErr) {
			paths = append(paths, subErr.Path)
		}
	}
	return paths
}
