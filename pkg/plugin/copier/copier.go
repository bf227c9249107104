// Package copier is the build plugin that mirrors files into the output
// directory unchanged.
//
//	srcs:
//	  - copy:assets/logo.png   # copied to <outDir>/assets/logo.png
package copier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/journal"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/paths"
	"github.com/nullcatalyst/cobble/pkg/plugin"
	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// Name is the protocol handled by the plugin.
const Name = "copy"

// Config contains plugin configuration.
type Config struct {
	// Mailboxes builds the mailbox of every subscription
	// (default: mailbox.Immediate()).
	Mailboxes mailbox.Factory

	// Journal receives a record per copy (default: discard).
	Journal journal.Recorder
}

// Plugin copies sources into the output directory.
type Plugin struct {
	mailboxes mailbox.Factory
	journal   journal.Recorder
	logger    logger.Logger
}

var _ plugin.Plugin = (*Plugin)(nil)

// New creates the plugin.
func New(cfg Config, log logger.Logger) *Plugin {
	if cfg.Mailboxes == nil {
		cfg.Mailboxes = mailbox.Immediate()
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Discard
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Plugin{
		mailboxes: cfg.Mailboxes,
		journal:   cfg.Journal,
		logger:    log.With("plugin", Name),
	}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return Name
}

// ProtocolExtensions implements plugin.Plugin. Copies are always explicit.
func (p *Plugin) ProtocolExtensions() []string {
	return nil
}

// Cleanup implements plugin.Plugin.
func (p *Plugin) Cleanup() error {
	return nil
}

// Process implements plugin.Plugin.
func (p *Plugin) Process(ctx context.Context, w watcher.Watcher, s *settings.BuildSettings) (plugin.Reset, error) {
	type registration struct {
		handle *watcher.Handle
		box    mailbox.Box
	}

	var regs []registration
	for _, t := range s.SrcsFor(Name) {
		src := t.Path
		dst, err := paths.Rebase(src, s.BasePath, s.OutDir)
		if err != nil {
			for _, r := range regs {
				r.handle.Close()
				r.box.Close()
			}
			return nil, err
		}

		box := p.mailboxes(func(ctx context.Context, e event.Event) error {
			return p.apply(s.Name, src, dst, e)
		})
		regs = append(regs, registration{handle: w.Add(src, mailbox.Listener(box)), box: box})
	}

	return func() {
		for _, r := range regs {
			r.handle.Close()
			r.box.Close()
		}
	}, nil
}

func (p *Plugin) apply(target, src, dst string, e event.Event) error {
	start := time.Now()
	r := &journal.Record{Target: target, Input: src, Output: dst}

	var err error
	if e.Kind == event.DeleteFile {
		r.Action = journal.ActionDelete
		err = os.Remove(dst)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		if err == nil {
			p.logger.Info("removed copy", "dst", dst)
		}
	} else {
		r.Action = journal.ActionCopy
		err = copyFile(src, dst)
		if err == nil {
			p.logger.Info("copied", "src", src, "dst", dst)
		}
	}

	r.Duration = time.Since(start)
	if err != nil {
		r.Status = journal.StatusFailed
		r.Error = err.Error()
	}
	if recErr := p.journal.Record(r); recErr != nil {
		p.logger.Warn("failed to record copy", "error", recErr)
	}
	return err
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
