// Package mailbox serializes and coalesces the events delivered to one
// callback.
//
// A Mailbox runs the callback immediately for the first event and lets at
// most one successor wait behind it; a burst of events while the callback
// runs collapses into a single further run with the newest event. Events
// not newer than the one already bound are dropped and their caller gets
// the task that will cover them.
//
// Example usage:
//
//	mb := mailbox.New(func(ctx context.Context, e event.Event) error {
//	    return compile(ctx, e.Path)
//	})
//	w.Add(src, mb.Listener())
package mailbox

import (
	"context"
	"sync"

	"github.com/nullcatalyst/cobble/pkg/event"
)

// Box is the behavior shared by Mailbox and Debounced.
type Box interface {
	// Post hands e to the box and returns the task whose execution will
	// observe e or an event that supersedes it.
	Post(ctx context.Context, e event.Event) *Task

	// Close releases timers. Executions already running are not stopped.
	Close()
}

// Factory builds a Box around a callback.
type Factory func(cb Callback) Box

// Immediate returns a Factory for Mailbox.
func Immediate() Factory {
	return func(cb Callback) Box { return New(cb) }
}

// Listener adapts a Box to the watcher listener signature: it posts and
// waits for the covering execution.
func Listener(b Box) func(ctx context.Context, e event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		return b.Post(ctx, e).Wait(ctx)
	}
}

// lineage is one execution of the callback, running or queued.
type lineage struct {
	ctx     context.Context
	event   event.Event
	started bool
	task    *Task
}

// Mailbox guarantees at most one running execution of its callback.
//
// State: current == nil is idle; current.started is running; otherwise
// current is a successor queued behind a running predecessor.
type Mailbox struct {
	cb Callback

	mu      sync.Mutex
	current *lineage
}

// New wraps cb in a mailbox.
func New(cb Callback) *Mailbox {
	return &Mailbox{cb: cb}
}

// Post implements Box.Post.
func (m *Mailbox) Post(ctx context.Context, e event.Event) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current
	if cur == nil {
		l := &lineage{ctx: ctx, event: e, started: true, task: newTask()}
		m.current = l
		go m.run(l, nil)
		return l.task
	}

	if !e.After(cur.event) {
		return cur.task
	}

	if cur.started {
		next := &lineage{ctx: ctx, event: e, task: newTask()}
		m.current = next
		go m.run(next, cur.task)
		return next.task
	}

	// Queued successor that has not started: rebind in place.
	cur.ctx = ctx
	cur.event = e
	return cur.task
}

// Listener returns m as a watcher listener.
func (m *Mailbox) Listener() func(ctx context.Context, e event.Event) error {
	return Listener(m)
}

// Busy reports whether an execution is running or queued.
func (m *Mailbox) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Close implements Box.Close.
func (m *Mailbox) Close() {}

func (m *Mailbox) run(l *lineage, prev *Task) {
	if prev != nil {
		// The predecessor's failure is its own caller's concern.
		<-prev.done
	}

	m.mu.Lock()
	l.started = true
	ctx, e := l.ctx, l.event
	m.mu.Unlock()

	err := call(ctx, m.cb, e)

	m.mu.Lock()
	if m.current == l {
		m.current = nil
	}
	m.mu.Unlock()

	l.task.finish(err)
}
