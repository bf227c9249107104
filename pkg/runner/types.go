// Package runner drives the build of a set of build files.
//
// A Runner loads every build file, hands each to the plugin registry,
// watches the build files themselves and announces every source once so
// the plugins compile from scratch:
//
//	r := runner.New(runner.Config{Files: []string{"build.yaml"}}, registry, log)
//	if err := r.Load(ctx); err != nil { ... }
//	if err := r.Start(ctx, fileWatcher); err != nil { ... }
//	defer r.Stop()
//
// Editing a build file resets its plugins, reloads it, processes it again
// and rescans its sources. Deleting it only resets.
package runner

import (
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/platform"
	"github.com/nullcatalyst/cobble/pkg/settings"
)

// Config holds the configuration for a Runner.
type Config struct {
	// Files are the build files to run, absolute or relative to the
	// working directory.
	Files []string

	// Target is the platform being built (default: host).
	Target platform.Platform

	// Release selects the release overlays.
	Release bool

	// Variables adds to the built-in build file variables.
	Variables settings.Variables

	// Mailboxes builds the mailbox guarding each build file
	// (default: mailbox.Immediate()).
	Mailboxes mailbox.Factory

	// Parallelism bounds concurrent loads and source announcements
	// (default: number of CPUs).
	Parallelism int
}
