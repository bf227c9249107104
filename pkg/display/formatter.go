package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nullcatalyst/cobble/pkg/journal"
)

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatSimple:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// subject is the file a record is about: the output for links, the
// input otherwise.
func subject(r *journal.Record) string {
	if r.Action == journal.ActionLink || r.Input == "" {
		return r.Output
	}
	return r.Input
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

// shorten keeps the tail of a path that does not fit in max characters.
func shorten(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return "..." + s[len(s)-(max-3):]
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	return err
}

// writeOutput writes the captured output of failed records.
func writeOutput(w io.Writer, records []*journal.Record) error {
	for _, r := range records {
		if !r.Failed() {
			continue
		}
		out := strings.TrimSpace(r.Stderr + r.Stdout)
		if out == "" {
			out = r.Error
		}
		if _, err := fmt.Fprintf(w, "--- %s %s\n%s\n", r.Action, subject(r), out); err != nil {
			return err
		}
	}
	return nil
}
