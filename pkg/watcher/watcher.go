package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/paths"
)

// FileWatcher is a Bus fed by fsnotify notifications below one root.
type FileWatcher struct {
	*Bus

	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	errors chan error

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}
	root     string
	ignore   []string

	// Settle state: latest raw notification per path.
	pendingMu sync.Mutex
	pending   map[string]*time.Timer
	latest    map[string]event.Event

	failureCount int
}

// NewFileWatcher creates a watcher. Nothing is observed until Start.
func NewFileWatcher(cfg Config, log logger.Logger) (*FileWatcher, error) {
	if cfg.SettleInterval == 0 {
		cfg.SettleInterval = 50 * time.Millisecond
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ignore := make([]string, 0, len(cfg.Ignore))
	for _, p := range cfg.Ignore {
		abs, absErr := filepath.Abs(p)
		if absErr != nil {
			abs = filepath.Clean(p)
		}
		ignore = append(ignore, abs)
	}

	log.Debug("file watcher created",
		"settle_interval", cfg.SettleInterval,
		"ignore", ignore)

	return &FileWatcher{
		Bus:      NewBus(log),
		fsw:      fsw,
		logger:   log,
		config:   cfg,
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
		ignore:   ignore,
		pending:  make(map[string]*time.Timer),
		latest:   make(map[string]event.Event),
	}, nil
}

// Start observes root and every directory below it that is not ignored.
// Events are delivered to listeners until Stop, Close, or ctx is done.
func (w *FileWatcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidRoot, abs)
	}

	w.running = true
	w.root = abs
	w.stopChan = make(chan struct{})
	stop := w.stopChan
	w.mu.Unlock()

	if err := w.addRecursive(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	w.logger.Info("watching", "root", abs)

	go w.processEvents(ctx, stop)
	return nil
}

// Stop ends delivery. Pending settle timers are discarded.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false
	w.dropPending()

	w.logger.Debug("watcher stopped")
	return nil
}

// Errors reports fsnotify failures and ErrCircuitBreakerOpen.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Root returns the directory passed to Start.
func (w *FileWatcher) Root() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.root
}

// Close stops the watcher and releases fsnotify.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.running {
		close(w.stopChan)
		w.running = false
	}
	w.dropPending()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *FileWatcher) dropPending() {
	w.pendingMu.Lock()
	for p, timer := range w.pending {
		timer.Stop()
		delete(w.pending, p)
		delete(w.latest, p)
	}
	w.pendingMu.Unlock()
}

func (w *FileWatcher) processEvents(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-stop:
			return

		case raw, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, raw)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.handleError(err) {
				return
			}
		}
	}
}

func (w *FileWatcher) handleEvent(ctx context.Context, raw fsnotify.Event) {
	p := filepath.Clean(raw.Name)
	if w.ignored(p) {
		return
	}

	var kind event.Kind
	switch {
	case raw.Op&fsnotify.Create == fsnotify.Create:
		kind = event.AddFile
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			w.adoptDirectory(ctx, p)
			return
		}
	case raw.Op&fsnotify.Write == fsnotify.Write:
		kind = event.ChangeFile
	case raw.Op&fsnotify.Remove == fsnotify.Remove,
		raw.Op&fsnotify.Rename == fsnotify.Rename:
		kind = event.DeleteFile
	default:
		return
	}

	w.settle(ctx, event.Now(kind, p))
}

// adoptDirectory starts watching a directory created after Start and
// reports the files that landed in it before the watch existed.
func (w *FileWatcher) adoptDirectory(ctx context.Context, dir string) {
	if err := w.addRecursive(dir); err != nil {
		w.logger.Warn("failed to watch new directory", "path", dir, "error", err)
		return
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.ignored(p) {
				return filepath.SkipDir
			}
			return nil
		}
		w.settle(ctx, event.Now(event.AddFile, p))
		return nil
	})
	if err != nil {
		w.logger.Warn("failed to scan new directory", "path", dir, "error", err)
	}
}

// settle holds a path's notification until the path has been quiet for
// SettleInterval, then emits the latest one.
func (w *FileWatcher) settle(ctx context.Context, e event.Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	prev, seen := w.latest[e.Path]
	// A file created and written within one window is still new.
	if seen && prev.Kind == event.AddFile && e.Kind == event.ChangeFile {
		e.Kind = event.AddFile
	}
	w.latest[e.Path] = e

	if timer, ok := w.pending[e.Path]; ok {
		timer.Stop()
	}
	w.pending[e.Path] = time.AfterFunc(w.config.SettleInterval, func() {
		w.pendingMu.Lock()
		latest, ok := w.latest[e.Path]
		delete(w.latest, e.Path)
		delete(w.pending, e.Path)
		w.pendingMu.Unlock()

		if !ok {
			return
		}

		w.mu.RLock()
		deliver := w.running && !w.closed
		w.mu.RUnlock()

		if deliver {
			w.Emit(ctx, latest)
		}
	})
}

// handleError counts failures and reports whether the circuit opened.
func (w *FileWatcher) handleError(err error) bool {
	w.mu.Lock()
	w.failureCount++
	count := w.failureCount
	w.mu.Unlock()

	w.logger.Error("fsnotify error", "error", err, "failure_count", count)

	report := err
	opened := count >= w.config.CircuitBreakerThreshold
	if opened {
		w.logger.Error("circuit breaker opened", "threshold", w.config.CircuitBreakerThreshold)
		report = ErrCircuitBreakerOpen
	}

	select {
	case w.errors <- report:
	default:
		w.logger.Warn("error channel full, dropping error")
	}
	return opened
}

func (w *FileWatcher) ignored(p string) bool {
	for _, prefix := range w.ignore {
		if paths.Within(p, prefix) {
			return true
		}
	}
	return false
}

// addRecursive adds dir and every directory below it to fsnotify.
func (w *FileWatcher) addRecursive(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error walking path", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() || p == dir {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(p); addErr != nil {
			w.logger.Warn("failed to add subdirectory", "path", p, "error", addErr)
		}
		return nil
	})
}
