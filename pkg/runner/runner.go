package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/paths"
	"github.com/nullcatalyst/cobble/pkg/plugin"
	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// Runner owns one session per build file.
type Runner struct {
	config   Config
	registry *plugin.Registry
	logger   logger.Logger

	mu       sync.Mutex
	loaded   bool
	running  bool
	closed   bool
	sessions []*session
	watcher  watcher.Watcher
}

// New creates a runner over the plugins of registry.
func New(cfg Config, registry *plugin.Registry, log logger.Logger) *Runner {
	if cfg.Mailboxes == nil {
		cfg.Mailboxes = mailbox.Immediate()
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Noop()
	}

	log.Info("runner created",
		"files", len(cfg.Files),
		"target", cfg.Target,
		"release", cfg.Release)

	return &Runner{
		config:   cfg,
		registry: registry,
		logger:   log,
	}
}

// Load reads every build file in parallel. Build files that are also a
// dependency of another given build file are not run on their own.
func (r *Runner) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}
	if r.running {
		return ErrRunnerRunning
	}
	if len(r.config.Files) == 0 {
		return ErrNoBuildFiles
	}

	files := dedupePaths(r.config.Files)
	loaded := make([]*settings.BuildSettings, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Parallelism)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := r.load(path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			loaded[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	depOf := make(map[string]string)
	for _, s := range loaded {
		for _, dep := range s.DepFiles {
			depOf[dep] = s.ConfigPath
		}
	}

	r.sessions = r.sessions[:0]
	for _, s := range loaded {
		if parent, ok := depOf[s.ConfigPath]; ok {
			r.logger.Info("build file is a dependency, not running it separately",
				"file", s.ConfigPath,
				"dependent", parent)
			continue
		}
		r.sessions = append(r.sessions, newSession(r, s))
		r.logger.Debug("build file loaded",
			"name", s.Name,
			"file", s.ConfigPath,
			"srcs", len(s.Srcs))
	}
	r.loaded = true
	return nil
}

// Settings returns the current settings of every session.
func (r *Runner) Settings() []*settings.BuildSettings {
	r.mu.Lock()
	sessions := append([]*session(nil), r.sessions...)
	r.mu.Unlock()

	out := make([]*settings.BuildSettings, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.current())
	}
	return out
}

// Root returns the deepest directory containing every build file, the
// natural root for a file watcher.
func (r *Runner) Root() (string, error) {
	var dirs []string
	for _, s := range r.Settings() {
		for _, f := range s.Files() {
			dirs = append(dirs, filepath.Dir(f))
		}
	}
	if len(dirs) == 0 {
		return "", ErrNotLoaded
	}
	return paths.CommonBasePath(dirs)
}

// OutDirs returns the output directory of every session, for a watcher to
// ignore. Output directories that are the build file directory itself are
// left out.
func (r *Runner) OutDirs() []string {
	var out []string
	for _, s := range r.Settings() {
		if s.OutDir != "" && s.OutDir != s.BasePath {
			out = append(out, s.OutDir)
		}
	}
	return dedupePaths(out)
}

// Start processes every session, watches the build files and announces
// every source once. It returns after that initial cascade finished.
func (r *Runner) Start(ctx context.Context, w watcher.Watcher) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	if r.running {
		r.mu.Unlock()
		return ErrRunnerRunning
	}
	if !r.loaded {
		r.mu.Unlock()
		return ErrNotLoaded
	}
	r.running = true
	r.watcher = w
	sessions := append([]*session(nil), r.sessions...)
	r.mu.Unlock()

	var g errgroup.Group
	for _, s := range sessions {
		g.Go(func() error { return s.start(ctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("initial build finished", "builds", len(sessions))
	return nil
}

// Stop resets every session and cleans up the plugins.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	r.closed = true
	r.running = false
	sessions := r.sessions
	r.mu.Unlock()

	for i := len(sessions) - 1; i >= 0; i-- {
		sessions[i].close()
	}

	if err := r.registry.Cleanup(); err != nil {
		return err
	}

	r.logger.Info("runner stopped")
	return nil
}

func (r *Runner) load(path string) (*settings.BuildSettings, error) {
	return settings.Load(path, settings.LoadOptions{
		Target:    r.config.Target,
		Release:   r.config.Release,
		Protocols: r.registry.ExtensionProtocols(),
		Plugins:   r.registry.Names(),
		Variables: r.config.Variables,
	})
}

// scan announces every source of s as added.
func (r *Runner) scan(ctx context.Context, s *settings.BuildSettings) error {
	var g errgroup.Group
	g.SetLimit(r.config.Parallelism)

	for _, src := range s.Srcs {
		path := src.Path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.watcher.Emit(ctx, event.Now(event.AddFile, path))
			return nil
		})
	}
	return g.Wait()
}

func dedupePaths(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, p := range list {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}
