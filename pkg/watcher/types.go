// Package watcher fans filesystem events out to path-keyed listeners.
//
// A Bus holds the registrations and delivers events; a FileWatcher is a Bus
// fed by fsnotify under a root directory. Build plugins only depend on the
// Watcher interface, so tests drive them with a bare Bus.
//
// Example usage:
//
//	fw, err := watcher.NewFileWatcher(watcher.Config{
//	    Ignore: []string{"/project/out"},
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fw.Close()
//
//	h := fw.Add("/project/src/main.cpp", func(ctx context.Context, e event.Event) error {
//	    fmt.Println(e)
//	    return nil
//	})
//	defer h.Close()
//
//	if err := fw.Start(ctx, "/project"); err != nil {
//	    log.Fatal(err)
//	}
package watcher

import (
	"context"
	"time"

	"github.com/nullcatalyst/cobble/pkg/event"
)

// Listener handles one event. A returned error is logged by the bus and
// never reaches other listeners.
type Listener func(ctx context.Context, e event.Event) error

// Watcher is the subscription surface consumed by build plugins.
type Watcher interface {
	// Add registers l for path and returns the handle that removes exactly
	// this registration. Registering the same listener twice yields two
	// independent registrations.
	Add(path string, l Listener) *Handle

	// Remove drops the registration behind h. It is a no-op when h was
	// already removed or belongs to another watcher.
	Remove(h *Handle)

	// Emit delivers e to every listener registered for e.Path and returns
	// once all of them have finished, successfully or not.
	Emit(ctx context.Context, e event.Event)
}

// Config contains FileWatcher configuration.
type Config struct {
	// Ignore lists path prefixes whose events are dropped.
	Ignore []string

	// SettleInterval is how long a path must stay quiet before its latest
	// raw notification is emitted (default: 50ms).
	SettleInterval time.Duration

	// CircuitBreakerThreshold is the number of fsnotify errors after which
	// the watcher stops delivering (default: 5).
	CircuitBreakerThreshold int
}
