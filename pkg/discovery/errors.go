package discovery

import "errors"

// Common errors returned by the discovery package.
var (
	// ErrDirectoryNotFound is returned when a directory does not exist.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrNoBuildFiles is returned when no build files are discovered.
	ErrNoBuildFiles = errors.New("no build files found")

	// ErrInvalidPath is returned when a path is invalid or inaccessible.
	ErrInvalidPath = errors.New("invalid or inaccessible path")
)
