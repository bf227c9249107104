package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCommand is returned when a compiler override splits into nothing.
var ErrEmptyCommand = errors.New("compiler command is empty")

// ExitError reports a compiler that exited with a non-zero status.
type ExitError struct {
	Command []string
	Code    int
	Stdout  string
	Stderr  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// CommandLine returns the failed command as a single line.
func (e *ExitError) CommandLine() string {
	return strings.Join(e.Command, " ")
}
