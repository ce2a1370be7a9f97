package data

import (
	"errors"
	"fmt"
	"sync"
)

// Standard errors shared by file systems, object stores and the availability finder.
var (
	// Path errors
	ErrInvalidPath  = errors.New("docfs: invalid path detected")
	ErrNotDirectory = errors.New("docfs: not a directory")
	ErrIsDirectory  = errors.New("docfs: is a directory")

	// File system errors
	ErrNotFound  = errors.New("docfs: file not found")
	ErrTransient = errors.New("docfs: transient file system error")

	// Cache errors
	ErrStaleCache    = errors.New("docfs: cached entry is stale")
	ErrValueTooLarge = errors.New("docfs: value exceeds backend limit")
	ErrClosed        = errors.New("docfs: backend already closed")

	// Backend errors
	ErrBackendUnsupported = errors.New("docfs: backend unsupported")
	ErrBackendFailed      = errors.New("docfs: backend initialization failed")

	// Branch errors
	ErrUnknownChannel = errors.New("docfs: unknown channel")
	ErrUnknownBranch  = errors.New("docfs: unknown branch")
	ErrUnknownVersion = errors.New("docfs: unknown version")

	// Availability errors
	ErrAmbiguousAvailability = errors.New("docfs: ambiguous availability")

	// Configuration errors
	ErrInvalidConfig = errors.New("docfs: invalid configuration")
)

// pathError wraps a cause together with one of the sentinels above, so that
// errors.Is matches both.
type pathError struct {
	kind  error
	path  string
	cause error
}

func (e *pathError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%v: '%s'", e.kind, e.path)
	}
	return fmt.Sprintf("%v: '%s': %v", e.kind, e.path, e.cause)
}

func (e *pathError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// NotFound reports that path does not exist. err may be nil.
func NotFound(err error, path string) error {
	return &pathError{kind: ErrNotFound, path: path, cause: err}
}

// Transient reports a retryable failure while accessing path.
func Transient(err error, path string) error {
	return &pathError{kind: ErrTransient, path: path, cause: err}
}

// InvalidPath reports a malformed path.
func InvalidPath(err error, path string) error {
	return &pathError{kind: ErrInvalidPath, path: path, cause: err}
}

// IsNotFound is a shorthand for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Errors collects multiple errors, e.g. while closing several backends.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.errors)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
