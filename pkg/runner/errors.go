package runner

import "errors"

var (
	// ErrRunnerClosed is returned when operations are attempted on a stopped runner.
	ErrRunnerClosed = errors.New("runner is closed")

	// ErrRunnerRunning is returned when trying to start an already running runner.
	ErrRunnerRunning = errors.New("runner is already running")

	// ErrNotLoaded is returned when Start is called before Load.
	ErrNotLoaded = errors.New("build files are not loaded")

	// ErrNoBuildFiles is returned when no build files are given.
	ErrNoBuildFiles = errors.New("no build files to run")
)
