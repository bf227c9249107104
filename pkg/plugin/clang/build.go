package clang

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/journal"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/toolchain"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// build is the watch graph of one Process call.
type build struct {
	plugin   *Plugin
	watcher  watcher.Watcher
	settings *settings.BuildSettings
	opts     toolchain.Options
	logger   logger.Logger

	// linkFn runs when an object changes.
	linkFn func(ctx context.Context, e event.Event) error
	linker *linker

	mu      sync.Mutex
	sources []*source
}

func newBuild(p *Plugin, w watcher.Watcher, s *settings.BuildSettings) *build {
	b := &build{
		plugin:   p,
		watcher:  w,
		settings: s,
		opts:     options(s),
		logger:   p.logger.With("target", s.Name),
	}

	switch p.linkMode {
	case LinkConcurrent:
		b.linkFn = func(ctx context.Context, _ event.Event) error { return b.link(ctx) }
	default:
		b.linker = newLinker(b)
		b.linkFn = b.linker.request
	}
	return b
}

// objects returns the object path of every source, in source order.
func (b *build) objects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	objs := make([]string, len(b.sources))
	for i, src := range b.sources {
		objs[i] = src.obj
	}
	return objs
}

func (b *build) addSource(src, obj string, headers []string) {
	s := newSource(b, src, obj, headers)

	b.mu.Lock()
	b.sources = append(b.sources, s)
	b.mu.Unlock()
}

func (b *build) dispose() {
	b.mu.Lock()
	sources := b.sources
	b.sources = nil
	b.mu.Unlock()

	for _, s := range sources {
		s.dispose()
	}
	if b.linker != nil {
		b.linker.close()
	}
}

func (b *build) compile(ctx context.Context, src, obj string) error {
	b.logger.Info("compiling", "src", src)

	res, err := b.plugin.toolchain.Compile(ctx, src, obj, b.opts)
	b.record(&journal.Record{Action: journal.ActionCompile, Input: src, Output: obj}, res, err)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", src, err)
	}
	return nil
}

// link relinks the whole output. Objects that were not compiled yet defer
// the link; the compile that produces them links again.
func (b *build) link(ctx context.Context) error {
	output := b.settings.OutputPath
	objs := b.objects()

	var missing []string
	for _, obj := range objs {
		if _, err := os.Stat(obj); err != nil {
			missing = append(missing, obj)
		}
	}
	if len(missing) > 0 {
		b.logger.Info("link deferred", "output", output, "missing", len(missing))
		b.record(&journal.Record{
			Action: journal.ActionLink,
			Status: journal.StatusSkipped,
			Output: output,
			Error:  "objects not built yet: " + strings.Join(missing, ", "),
		}, toolchain.Result{}, nil)
		return nil
	}

	b.logger.Info("linking", "output", output, "objects", len(objs))

	res, err := b.plugin.toolchain.Link(ctx, objs, output, b.opts)
	b.record(&journal.Record{Action: journal.ActionLink, Input: first(objs), Output: output}, res, err)
	if err != nil {
		return fmt.Errorf("failed to link %s: %w", output, err)
	}
	return nil
}

func (b *build) record(r *journal.Record, res toolchain.Result, err error) {
	r.Target = b.settings.Name
	r.Duration = res.Duration
	r.Stdout = res.Stdout
	r.Stderr = res.Stderr
	if len(res.Command) > 0 {
		r.Command = strings.Join(res.Command, " ")
	}

	if err != nil {
		r.Status = journal.StatusFailed
		r.Error = err.Error()

		var exit *toolchain.ExitError
		if errors.As(err, &exit) {
			r.ExitCode = exit.Code
			r.Command = exit.CommandLine()
			r.Stdout = exit.Stdout
			r.Stderr = exit.Stderr
		}
	}

	if recErr := b.plugin.journal.Record(r); recErr != nil {
		b.logger.Warn("failed to record build", "action", r.Action, "error", recErr)
	}
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// linker serializes the links of one output. Requests carry strictly
// increasing stamps so a request is never dropped as stale by the mailbox:
// every finished compile is followed by a link that starts after it.
type linker struct {
	mu   sync.Mutex
	last time.Time
	path string
	box  mailbox.Box
}

func newLinker(b *build) *linker {
	return &linker{
		path: b.settings.OutputPath,
		box: b.plugin.mailboxes(func(ctx context.Context, _ event.Event) error {
			return b.link(ctx)
		}),
	}
}

func (l *linker) request(ctx context.Context, e event.Event) error {
	l.mu.Lock()
	ts := e.Timestamp
	if !ts.After(l.last) {
		ts = l.last.Add(time.Nanosecond)
	}
	l.last = ts
	task := l.box.Post(ctx, event.New(event.BuildFile, l.path, ts))
	l.mu.Unlock()

	return task.Wait(ctx)
}

func (l *linker) close() {
	l.box.Close()
}
