// Package toolchain runs the external compiler that discovers header
// dependencies, compiles sources into objects and links objects into an
// output.
//
// Example usage:
//
//	tc, err := toolchain.NewClang(toolchain.ClangConfig{}, log)
//	if err != nil {
//	    return err
//	}
//	deps, err := tc.Dependencies(ctx, srcs, opts)
//	res, err := tc.Compile(ctx, src, obj, opts)
package toolchain

import (
	"context"
	"time"

	"github.com/nullcatalyst/cobble/pkg/platform"
)

// Toolchain is the compiler capability the clang plugin depends on.
type Toolchain interface {
	// Dependencies returns, for every source in srcs, the absolute paths
	// of the headers it includes.
	Dependencies(ctx context.Context, srcs []string, opts Options) (map[string][]string, error)

	// Compile builds src into obj. The directory of obj is created first.
	Compile(ctx context.Context, src, obj string, opts Options) (Result, error)

	// Link combines objs into output. The directory of output is created
	// first.
	Link(ctx context.Context, objs []string, output string, opts Options) (Result, error)
}

// Options are the per-target compiler inputs.
type Options struct {
	// Target is the platform being built.
	Target platform.Platform

	// Std is the language standard (default: c++17).
	Std string

	Includes []string
	Defines  []string

	// Flags are appended to every compile and link.
	Flags []string

	// Libs are linked with -l.
	Libs []string

	// LinkFlags are appended to links only.
	LinkFlags []string

	// Dir is the working directory of the compiler; relative paths in its
	// output are resolved against it.
	Dir string
}

// Result describes a finished compiler run.
type Result struct {
	Command  []string
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Command is one process invocation.
type Command struct {
	Args []string
	Dir  string

	// Quiet keeps stdout out of the live output, for runs whose stdout is
	// parsed.
	Quiet bool
}

// RunFunc executes a command and captures its output.
type RunFunc func(ctx context.Context, cmd Command) (Result, error)
