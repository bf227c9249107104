package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nullcatalyst/cobble/pkg/config"
	"github.com/nullcatalyst/cobble/pkg/display"
	"github.com/nullcatalyst/cobble/pkg/journal"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"golang.org/x/term"
)

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	limit       int
	format      string
	failed      bool
	target      string
	output      bool
	percentiles bool
}

func parseHistoryFlags(args []string) (*historyOptions, error) {
	opts := &historyOptions{}

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.IntVar(&opts.limit, "limit", 20, "number of records to show (0 for all)")
	fs.StringVar(&opts.format, "format", "table", "output format (table, json, simple)")
	fs.BoolVar(&opts.failed, "failed", false, "only show failures")
	fs.StringVar(&opts.target, "target", "", "only show one build")
	fs.BoolVar(&opts.output, "output", false, "include captured compiler output")
	fs.BoolVar(&opts.percentiles, "percentiles", false, "show duration percentiles in the summary")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.limit < 0 {
		return nil, fmt.Errorf("invalid limit: %d", opts.limit)
	}
	return opts, nil
}

// runHistoryCommand shows recorded build steps, newest first.
func runHistoryCommand(configPath string, args []string) error {
	opts, err := parseHistoryFlags(args)
	if err != nil {
		return err
	}

	format, err := display.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	store, err := journal.Open(journal.Config{
		DBPath:  cfg.Journal.DBPath,
		Timeout: 500 * time.Millisecond,
	}, log)
	if err != nil {
		if errors.Is(err, journal.ErrLocked) {
			return fmt.Errorf("%w; stop the running `cobble watch` first", err)
		}
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close journal", "error", err)
		}
	}()

	filter := journal.Filter{
		Limit:  opts.limit,
		Target: opts.target,
	}
	if opts.failed {
		filter.Status = journal.StatusFailed
	}

	records, err := store.List(filter)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	formatter := display.New(display.Config{
		Format:          format,
		ShowOutput:      opts.output,
		ShowPercentiles: opts.percentiles,
		Width:           terminalWidth(),
	})

	if err := formatter.FormatRecords(stdout, records); err != nil {
		return err
	}
	if format == display.FormatJSON {
		return nil
	}
	return formatter.FormatSummary(stdout, journal.Summarize(records))
}

// terminalWidth returns the width of stdout, or 0 when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if stdout != os.Stdout || !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
