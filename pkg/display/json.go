package display

import (
	"encoding/json"
	"io"

	"github.com/nullcatalyst/cobble/pkg/journal"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatRecords implements Formatter.FormatRecords.
func (f *jsonFormatter) FormatRecords(w io.Writer, records []*journal.Record) error {
	if records == nil {
		records = []*journal.Record{}
	}
	if !f.config.ShowOutput {
		trimmed := make([]*journal.Record, len(records))
		for i, r := range records {
			c := *r
			c.Stdout, c.Stderr = "", ""
			trimmed[i] = &c
		}
		records = trimmed
	}

	return f.encoder(w).Encode(records)
}

// FormatSummary implements Formatter.FormatSummary.
func (f *jsonFormatter) FormatSummary(w io.Writer, summary journal.Summary) error {
	return f.encoder(w).Encode(summary)
}

func (f *jsonFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder
}
