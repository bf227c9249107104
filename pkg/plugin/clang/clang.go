// Package clang is the compiler-driven build plugin.
//
// For every C or C++ source of a build it watches the source, each header
// the source includes and the object file it compiles to:
//
//	header changed  -> recompile source -> BuildFile(object) -> link
//	source changed  -> rediscover headers, recompile -> BuildFile(object) -> link
//	source deleted  -> stop watching its headers
//
// Every subscription is wrapped in a mailbox so a burst of edits runs the
// compiler at most once at a time per subscription, always with the newest
// event.
package clang

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/nullcatalyst/cobble/pkg/journal"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/paths"
	"github.com/nullcatalyst/cobble/pkg/plugin"
	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/toolchain"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// Name is the protocol handled by the plugin.
const Name = "clang"

// LinkMode selects how object updates turn into links.
type LinkMode string

const (
	// LinkSerialized funnels every link of a build through one mailbox, so
	// at most one link per output runs and the last one follows the last
	// finished compile.
	LinkSerialized LinkMode = "serialized"

	// LinkConcurrent relinks from every object subscription independently.
	// Links finishing together race on the output file.
	LinkConcurrent LinkMode = "concurrent"
)

// ParseLinkMode validates a link mode name. The empty string is serialized.
func ParseLinkMode(s string) (LinkMode, error) {
	switch LinkMode(s) {
	case "", LinkSerialized:
		return LinkSerialized, nil
	case LinkConcurrent:
		return LinkConcurrent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLinkMode, s)
	}
}

// Config contains plugin configuration.
type Config struct {
	// TmpDir is the scratch directory objects are written below.
	TmpDir string

	// LinkMode defaults to LinkSerialized.
	LinkMode LinkMode

	// Mailboxes builds the mailbox of every subscription
	// (default: mailbox.Immediate()).
	Mailboxes mailbox.Factory

	// Journal receives a record per compile and link (default: discard).
	Journal journal.Recorder
}

// Plugin compiles and links C and C++ sources.
type Plugin struct {
	toolchain toolchain.Toolchain
	tmpDir    string
	linkMode  LinkMode
	mailboxes mailbox.Factory
	journal   journal.Recorder
	logger    logger.Logger

	mu     sync.Mutex
	builds map[*build]struct{}
}

var _ plugin.Plugin = (*Plugin)(nil)

// New creates the plugin.
func New(tc toolchain.Toolchain, cfg Config, log logger.Logger) *Plugin {
	if cfg.LinkMode == "" {
		cfg.LinkMode = LinkSerialized
	}
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
		toolchain: tc,
		tmpDir:    cfg.TmpDir,
		linkMode:  cfg.LinkMode,
		mailboxes: cfg.Mailboxes,
		journal:   cfg.Journal,
		logger:    log.With("plugin", Name),
		builds:    make(map[*build]struct{}),
	}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return Name
}

// ProtocolExtensions implements plugin.Plugin.
func (p *Plugin) ProtocolExtensions() []string {
	return []string{"c", "cc", "cpp", "cxx"}
}

// Process implements plugin.Plugin. Header discovery runs once over every
// source; a failure there aborts the build's setup.
func (p *Plugin) Process(ctx context.Context, w watcher.Watcher, s *settings.BuildSettings) (plugin.Reset, error) {
	targets := s.SrcsFor(Name)
	srcs := make([]string, len(targets))
	for i, t := range targets {
		srcs[i] = t.Path
	}

	b := newBuild(p, w, s)

	headers, err := p.toolchain.Dependencies(ctx, srcs, b.opts)
	if err != nil {
		b.record(&journal.Record{Action: journal.ActionDiscover, Input: s.ConfigPath}, toolchain.Result{}, err)
		return nil, fmt.Errorf("failed to discover dependencies of %s: %w", s.Name, err)
	}

	for _, src := range srcs {
		obj, err := p.objectPath(s, src)
		if err != nil {
			b.dispose()
			return nil, err
		}
		b.addSource(src, obj, headers[src])
	}

	p.mu.Lock()
	p.builds[b] = struct{}{}
	p.mu.Unlock()

	b.logger.Info("build processed", "sources", len(srcs), "output", s.OutputPath)

	return func() {
		p.mu.Lock()
		delete(p.builds, b)
		p.mu.Unlock()
		b.dispose()
	}, nil
}

// Cleanup implements plugin.Plugin by tearing down builds that were never
// reset.
func (p *Plugin) Cleanup() error {
	p.mu.Lock()
	builds := make([]*build, 0, len(p.builds))
	for b := range p.builds {
		builds = append(builds, b)
	}
	p.builds = make(map[*build]struct{})
	p.mu.Unlock()

	for _, b := range builds {
		b.dispose()
	}
	return nil
}

// objectPath places the object of src below the build's scratch directory,
// mirroring src's location below the build file.
func (p *Plugin) objectPath(s *settings.BuildSettings, src string) (string, error) {
	obj, err := paths.Rebase(src, s.BasePath, filepath.Join(p.tmpDir, s.Name))
	if err != nil {
		return "", err
	}
	return paths.ReplaceExt(obj, s.Target.ObjectExt()), nil
}

func options(s *settings.BuildSettings) toolchain.Options {
	bag, err := s.PluginSettings(Name)
	if err != nil {
		// Loaded without the plugin registered; the settings still apply.
		bag = settings.Options{}
	}

	std := bag.String("std")
	if std == "" {
		std = s.Std
	}

	return toolchain.Options{
		Target:    s.Target,
		Std:       std,
		Includes:  s.Includes,
		Defines:   s.Defines,
		Flags:     append(append([]string(nil), s.Flags...), bag.Strings("flags")...),
		Libs:      bag.Strings("libs"),
		LinkFlags: bag.Strings("link_flags"),
		Dir:       s.BasePath,
	}
}
