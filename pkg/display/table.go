package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nullcatalyst/cobble/pkg/journal"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatRecords implements Formatter.FormatRecords.
func (f *tableFormatter) FormatRecords(w io.Writer, records []*journal.Record) error {
	if err := writeHeader(w, "Build History", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Time", "Target", "Action", "Status", "Duration", "Exit", "File"}

	rows := make([][]string, len(records))
	for i, r := range records {
		exit := ""
		if r.ExitCode != 0 {
			exit = strconv.Itoa(r.ExitCode)
		}
		rows[i] = []string{
			r.Time.Format("2006-01-02 15:04:05"),
			r.Target,
			string(r.Action),
			string(r.Status),
			formatDuration(r.Duration),
			exit,
			subject(r),
		}
	}
	f.fitLastColumn(header, rows)

	if err := f.writeTable(w, header, rows); err != nil {
		return err
	}

	if f.config.ShowOutput {
		return writeOutput(w, records)
	}
	return nil
}

// FormatSummary implements Formatter.FormatSummary.
func (f *tableFormatter) FormatSummary(w io.Writer, s journal.Summary) error {
	if err := writeHeader(w, "Build Summary", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Records", strconv.Itoa(s.Total)},
		{"Targets", strconv.Itoa(s.Targets)},
		{"Compiles", strconv.Itoa(s.Compiles)},
		{"Links", strconv.Itoa(s.Links)},
		{"Copies", strconv.Itoa(s.Copies)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Total Time", formatDuration(s.TotalDuration)},
	}

	if f.config.ShowPercentiles {
		rows = append(rows,
			[]string{"P50 Time", formatDuration(s.P50Duration)},
			[]string{"P95 Time", formatDuration(s.P95Duration)},
			[]string{"Max Time", formatDuration(s.MaxDuration)},
		)
	}

	if !s.First.IsZero() {
		rows = append(rows,
			[]string{"First", s.First.Format("2006-01-02 15:04:05")},
			[]string{"Last", s.Last.Format("2006-01-02 15:04:05")},
		)
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

// fitLastColumn shortens the last column so rows fit in the configured width.
func (f *tableFormatter) fitLastColumn(header []string, rows [][]string) {
	if f.config.Width <= 0 || len(rows) == 0 {
		return
	}

	last := len(header) - 1
	used := 0
	for i := 0; i < last; i++ {
		width := len(header[i])
		for _, row := range rows {
			if len(row[i]) > width {
				width = len(row[i])
			}
		}
		used += width + f.gap()
	}

	for _, row := range rows {
		row[last] = shorten(row[last], f.config.Width-used)
	}
}

func (f *tableFormatter) gap() int {
	if f.config.Compact {
		return 1
	}
	return 2
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row. The last cell is not padded.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	sep := strings.Repeat(" ", f.gap())

	for i, cell := range cells {
		if i > 0 {
			if _, err := fmt.Fprint(w, sep); err != nil {
				return err
			}
		}

		if i == len(cells)-1 {
			if _, err := fmt.Fprint(w, cell); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "%-*s", widths[i], cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
