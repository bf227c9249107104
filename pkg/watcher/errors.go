package watcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the watcher.
var (
	// ErrWatcherClosed is returned when attempting to use a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyStarted is returned when Start is called on a running watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when Stop is called on a non-running watcher.
	ErrNotStarted = errors.New("watcher not started")

	// ErrCircuitBreakerOpen is reported when too many fsnotify errors occurred.
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")

	// ErrInvalidRoot is returned when the root is missing or not a directory.
	ErrInvalidRoot = errors.New("invalid watch root")
)

// PanicError wraps a value recovered from a panicking listener.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panicked: %v", e.Value)
}
