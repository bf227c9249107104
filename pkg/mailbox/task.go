package mailbox

import (
	"context"
	"fmt"

	"github.com/nullcatalyst/cobble/pkg/event"
)

// Callback is the work guarded by a mailbox.
type Callback func(ctx context.Context, e event.Event) error

// Task is the handle for one execution of a callback. Several posts may
// share a task when their events were coalesced.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the execution has settled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the execution's error once settled, nil before.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the execution settles or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func call(ctx context.Context, cb Callback, e event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailbox callback panicked: %v", r)
		}
	}()
	return cb(ctx, e)
}
