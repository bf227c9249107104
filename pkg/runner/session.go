package runner

import (
	"context"
	"sync"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/plugin"
	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// session is one build file: its settings, the plugin registrations made
// for them and the watch on the build file and its dependency files.
type session struct {
	runner *Runner
	path   string
	box    mailbox.Box

	mu       sync.Mutex
	closed   bool
	settings *settings.BuildSettings
	reset    plugin.Reset
	handles  map[string]*watcher.Handle
}

func newSession(r *Runner, s *settings.BuildSettings) *session {
	sess := &session{
		runner:   r,
		path:     s.ConfigPath,
		settings: s,
		handles:  make(map[string]*watcher.Handle),
	}
	sess.box = r.config.Mailboxes(sess.onConfig)
	return sess
}

func (s *session) current() *settings.BuildSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *session) start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	current := s.settings
	if err := s.processLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.watchLocked()
	s.mu.Unlock()

	s.runner.logger.Info("building", "name", current.Name, "file", s.path)
	return s.runner.scan(ctx, current)
}

// onConfig handles an event on the build file or one of its dependency
// files. A fresh file is not a change; a deleted one only stops the build.
func (s *session) onConfig(ctx context.Context, e event.Event) error {
	log := s.runner.logger.With("file", s.path)

	if e.Kind == event.AddFile {
		log.Debug("ignoring added build file", "path", e.Path)
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.resetLocked()
	if e.Kind == event.DeleteFile {
		s.mu.Unlock()
		log.Info("build file deleted, build stopped", "path", e.Path)
		return nil
	}

	log.Info("build file changed, reloading", "path", e.Path)
	next, err := s.runner.load(s.path)
	if err != nil {
		s.mu.Unlock()
		log.Error("failed to reload build file", "error", err)
		return err
	}
	s.settings = next
	s.watchLocked()

	if err := s.processLocked(ctx); err != nil {
		s.mu.Unlock()
		log.Error("failed to process build file", "error", err)
		return err
	}
	s.mu.Unlock()

	return s.runner.scan(ctx, next)
}

func (s *session) processLocked(ctx context.Context) error {
	reset, err := s.runner.registry.Process(ctx, s.runner.watcher, s.settings)
	if err != nil {
		return err
	}
	s.reset = reset
	return nil
}

func (s *session) resetLocked() {
	if s.reset != nil {
		s.reset()
		s.reset = nil
	}
}

// watchLocked points the build file watch at the current file set,
// keeping registrations for files that stay.
func (s *session) watchLocked() {
	next := make(map[string]*watcher.Handle)
	for _, f := range s.settings.Files() {
		if h, ok := s.handles[f]; ok {
			next[f] = h
			delete(s.handles, f)
			continue
		}
		if _, dup := next[f]; !dup {
			next[f] = s.runner.watcher.Add(f, mailbox.Listener(s.box))
		}
	}
	for _, stale := range s.handles {
		stale.Close()
	}
	s.handles = next
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for _, h := range s.handles {
		h.Close()
	}
	s.handles = nil
	s.box.Close()
	s.resetLocked()
}
