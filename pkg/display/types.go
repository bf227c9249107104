// Package display provides output formatting for the build journal.
//
// It supports multiple output formats (table, JSON, simple text) for
// journal records and their summary.
package display

import (
	"io"

	"github.com/nullcatalyst/cobble/pkg/journal"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays records in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays records as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays records one per line.
	FormatSimple Format = "simple"
)

// Formatter formats and displays journal contents.
type Formatter interface {
	// FormatRecords formats records in the order given.
	//
	// Parameters:
	//   - w: Output writer
	//   - records: Records to format
	//
	// Returns error if formatting fails.
	FormatRecords(w io.Writer, records []*journal.Record) error

	// FormatSummary formats the aggregate of a set of records.
	//
	// Parameters:
	//   - w: Output writer
	//   - summary: Summary to format
	//
	// Returns error if formatting fails.
	FormatSummary(w io.Writer, summary journal.Summary) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowOutput prints the captured compiler output of failed records.
	// Default: false.
	ShowOutput bool

	// ShowPercentiles enables duration percentiles in summaries.
	// Default: false.
	ShowPercentiles bool

	// Width is the terminal width used to shorten long paths.
	// Zero disables shortening.
	Width int

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
