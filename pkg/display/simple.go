package display

import (
	"fmt"
	"io"

	"github.com/nullcatalyst/cobble/pkg/journal"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatRecords implements Formatter.FormatRecords.
func (f *simpleFormatter) FormatRecords(w io.Writer, records []*journal.Record) error {
	for _, r := range records {
		line := fmt.Sprintf("%s %s %s %s %s (%s)",
			r.Time.Format("15:04:05"),
			r.Status,
			r.Target,
			r.Action,
			subject(r),
			formatDuration(r.Duration))
		if r.ExitCode != 0 {
			line += fmt.Sprintf(" exit %d", r.ExitCode)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if f.config.ShowOutput {
		return writeOutput(w, records)
	}
	return nil
}

// FormatSummary implements Formatter.FormatSummary.
func (f *simpleFormatter) FormatSummary(w io.Writer, s journal.Summary) error {
	_, err := fmt.Fprintf(w, "Records: %d | Failed: %d | Skipped: %d | Compiles: %d | Links: %d | Copies: %d | Time: %s\n",
		s.Total,
		s.Failed,
		s.Skipped,
		s.Compiles,
		s.Links,
		s.Copies,
		formatDuration(s.TotalDuration))
	return err
}
