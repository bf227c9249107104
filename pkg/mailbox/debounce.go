package mailbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nullcatalyst/cobble/pkg/event"
)

// ErrClosed settles tasks that were still waiting for a quiet window when
// their Debounced box was closed.
var ErrClosed = errors.New("mailbox closed")

// Debounced runs its callback once events stop arriving for a quiet window,
// always with the newest event seen. While the callback runs, at most one
// further execution is queued.
type Debounced struct {
	cb    Callback
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	ctx     context.Context
	latest  event.Event
	next    *Task
	running bool
	lapsed  bool
	closed  bool
}

// NewDebounced wraps cb with a quiet window of delay.
func NewDebounced(delay time.Duration, cb Callback) *Debounced {
	return &Debounced{cb: cb, delay: delay}
}

// Debounce returns a Factory for Debounced boxes.
func Debounce(delay time.Duration) Factory {
	return func(cb Callback) Box { return NewDebounced(delay, cb) }
}

// Post implements Box.Post.
func (d *Debounced) Post(ctx context.Context, e event.Event) *Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		t := newTask()
		t.finish(ErrClosed)
		return t
	}

	if d.next == nil {
		d.next = newTask()
		d.latest = e
	} else if e.After(d.latest) {
		d.latest = e
	}
	d.ctx = ctx

	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
	} else {
		d.timer.Reset(d.delay)
	}
	return d.next
}

// Listener returns d as a watcher listener.
func (d *Debounced) Listener() func(ctx context.Context, e event.Event) error {
	return Listener(d)
}

// Close implements Box.Close.
func (d *Debounced) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.next != nil {
		d.next.finish(ErrClosed)
		d.next = nil
	}
}

func (d *Debounced) fire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		d.lapsed = true
		return
	}
	d.startLocked()
}

func (d *Debounced) startLocked() {
	t := d.next
	if t == nil || d.closed {
		return
	}
	ctx, e := d.ctx, d.latest
	d.next = nil
	d.running = true

	go func() {
		err := call(ctx, d.cb, e)
		t.finish(err)

		d.mu.Lock()
		defer d.mu.Unlock()
		d.running = false
		if d.lapsed {
			d.lapsed = false
			d.startLocked()
		}
	}()
}
