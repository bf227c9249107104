package depfile

import (
	"errors"
	"strconv"
)

// ErrMissingSeparator is returned for a line with no "target:" part.
var ErrMissingSeparator = errors.New("make file has invalid format: missing target separator")

// ParseError provides context about a parsing failure.
type ParseError struct {
	Line int    // Logical line number after joining continuations (1-indexed)
	Data string // The offending line (truncated if too long)
	Err  error  // Underlying error
}

func (e *ParseError) Error() string {
	data := e.Data
	if len(data) > 100 {
		data = data[:100] + "..."
	}
	return "dependency parse error at line " + strconv.Itoa(e.Line) + ": " + data + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
