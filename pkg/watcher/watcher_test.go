package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/logger"
)

func newTestWatcher(t *testing.T, cfg Config) *FileWatcher {
	t.Helper()

	if cfg.SettleInterval == 0 {
		cfg.SettleInterval = 20 * time.Millisecond
	}
	w, err := NewFileWatcher(cfg, logger.Noop())
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Logf("Close() error = %v", err)
		}
	})
	return w
}

func collect(w *FileWatcher, path string) <-chan event.Event {
	ch := make(chan event.Event, 16)
	w.Add(path, func(ctx context.Context, e event.Event) error {
		ch <- e
		return nil
	})
	return ch
}

func waitEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return event.Event{}
	}
}

func TestStartRejectsInvalidRoot(t *testing.T) {
	w := newTestWatcher(t, Config{})

	err := w.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("Start() error = %v, want ErrInvalidRoot", err)
	}
}

func TestStartTwice(t *testing.T) {
	w := newTestWatcher(t, Config{})
	root := t.TempDir()

	if err := w.Start(context.Background(), root); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background(), root); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second Stop() error = %v, want ErrNotStarted", err)
	}
}

func TestFileEventsReachListeners(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "main.cpp")
	if err := os.WriteFile(file, []byte("int main() {}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, Config{})
	events := collect(w, file)

	if err := w.Start(context.Background(), root); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := os.WriteFile(file, []byte("int main() { return 1; }\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if e := waitEvent(t, events); e.Kind != event.ChangeFile {
		t.Errorf("Kind = %v, want change", e.Kind)
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	if e := waitEvent(t, events); e.Kind != event.DeleteFile {
		t.Errorf("Kind = %v, want delete", e.Kind)
	}
}

func TestNewDirectoryIsAdopted(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "gen")
	file := filepath.Join(dir, "out.h")

	w := newTestWatcher(t, Config{})
	events := collect(w, file)

	if err := w.Start(context.Background(), root); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("#pragma once\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if e := waitEvent(t, events); e.Kind != event.AddFile {
		t.Errorf("Kind = %v, want add", e.Kind)
	}
}

func TestIgnoredPrefixesAreDropped(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	if err := os.MkdirAll(out, 0700); err != nil {
		t.Fatal(err)
	}
	ignoredFile := filepath.Join(out, "app")
	watchedFile := filepath.Join(root, "main.c")

	w := newTestWatcher(t, Config{Ignore: []string{out}})
	ignored := collect(w, ignoredFile)
	watched := collect(w, watchedFile)

	if err := w.Start(context.Background(), root); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := os.WriteFile(ignoredFile, []byte("binary"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(watchedFile, []byte("int x;"), 0600); err != nil {
		t.Fatal(err)
	}

	waitEvent(t, watched)
	select {
	case e := <-ignored:
		t.Errorf("received event for ignored path: %v", e)
	case <-time.After(100 * time.Millisecond):
	}
}
