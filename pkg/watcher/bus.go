package watcher

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/logger"
)

type entry struct {
	id       uint64
	listener Listener
}

// Handle identifies one registration. Close removes it and may be called
// any number of times.
type Handle struct {
	bus  *Bus
	path string
	id   uint64
	once sync.Once
}

// Close removes the registration.
func (h *Handle) Close() {
	if h == nil || h.bus == nil {
		return
	}
	h.once.Do(func() {
		h.bus.remove(h.path, h.id)
	})
}

// Path returns the key the registration was filed under.
func (h *Handle) Path() string {
	return h.path
}

// Bus is an in-memory Watcher. It never touches the filesystem.
type Bus struct {
	logger logger.Logger

	mu        sync.RWMutex
	listeners map[string][]entry
	nextID    uint64
}

// NewBus creates an empty bus.
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		logger:    log,
		listeners: make(map[string][]entry),
	}
}

// Add implements Watcher.Add.
func (b *Bus) Add(path string, l Listener) *Handle {
	key := filepath.Clean(path)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[key] = append(b.listeners[key], entry{id: id, listener: l})
	b.mu.Unlock()

	return &Handle{bus: b, path: key, id: id}
}

// Remove implements Watcher.Remove.
func (b *Bus) Remove(h *Handle) {
	if h == nil || h.bus != b {
		return
	}
	h.Close()
}

func (b *Bus) remove(key string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[key]
	for i, candidate := range entries {
		if candidate.id != id {
			continue
		}
		if len(entries) == 1 {
			delete(b.listeners, key)
			return
		}
		// Emit may hold a snapshot of the old slice.
		next := make([]entry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		b.listeners[key] = next
		return
	}
}

// Emit implements Watcher.Emit.
//
// Every listener runs on its own goroutine. Errors and panics are logged
// and never propagate.
func (b *Bus) Emit(ctx context.Context, e event.Event) {
	key := filepath.Clean(e.Path)

	b.mu.RLock()
	entries := b.listeners[key]
	b.mu.RUnlock()

	if len(entries) == 0 {
		b.logger.Debug("no listeners", "kind", e.Kind.String(), "path", key)
		return
	}

	b.logger.Debug(e.Kind.Progressive(), "path", key, "listeners", len(entries))

	var wg sync.WaitGroup
	wg.Add(len(entries))
	for _, en := range entries {
		go func(en entry) {
			defer wg.Done()
			if err := invoke(ctx, en.listener, e); err != nil {
				b.logger.Error("listener failed",
					"kind", e.Kind.String(),
					"path", key,
					"error", err)
			}
		}(en)
	}
	wg.Wait()
}

// Count returns the number of listeners registered for path.
func (b *Bus) Count(path string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[filepath.Clean(path)])
}

// Len returns the total number of registrations.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, entries := range b.listeners {
		n += len(entries)
	}
	return n
}

// Paths returns every path with at least one listener, sorted.
func (b *Bus) Paths() []string {
	b.mu.RLock()
	paths := make([]string, 0, len(b.listeners))
	for p := range b.listeners {
		paths = append(paths, p)
	}
	b.mu.RUnlock()

	sort.Strings(paths)
	return paths
}

func invoke(ctx context.Context, l Listener, e event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return l(ctx, e)
}
