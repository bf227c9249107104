package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// SplitCommand splits a compiler override such as "ccache clang" into
// arguments with shell quoting rules. Environment variables are expanded.
func SplitCommand(s string) ([]string, error) {
	fields, err := shell.Fields(s, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compiler command %q: %w", s, err)
	}
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	return fields, nil
}

// Spawner starts processes, mirroring their output to Stdout and Stderr
// while capturing it.
type Spawner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes cmd and waits for it. A non-zero exit is an *ExitError.
func (s Spawner) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) == 0 {
		return Result{}, ErrEmptyCommand
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Stdout = tee(&stdout, s.Stdout, cmd.Quiet)
	c.Stderr = tee(&stderr, s.Stderr, false)

	start := time.Now()
	err := c.Run()
	res := Result{
		Command:  cmd.Args,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, &ExitError{
				Command: cmd.Args,
				Code:    exitErr.ExitCode(),
				Stdout:  res.Stdout,
				Stderr:  res.Stderr,
			}
		}
		return res, fmt.Errorf("failed to run %s: %w", cmd.Args[0], err)
	}
	return res, nil
}

func tee(buf *bytes.Buffer, w io.Writer, quiet bool) io.Writer {
	if w == nil || quiet {
		return buf
	}
	return io.MultiWriter(buf, w)
}
