package runner

import (
	"sync/atomic"

	"github.com/nullcatalyst/cobble/pkg/journal"
)

// Tally counts records on their way to a journal.
type Tally struct {
	next   journal.Recorder
	total  atomic.Int64
	failed atomic.Int64
}

// NewTally wraps next (default: journal.Discard).
func NewTally(next journal.Recorder) *Tally {
	if next == nil {
		next = journal.Discard
	}
	return &Tally{next: next}
}

// Record implements journal.Recorder.
func (t *Tally) Record(r *journal.Record) error {
	t.total.Add(1)
	if r.Failed() {
		t.failed.Add(1)
	}
	return t.next.Record(r)
}

// Total returns the number of records seen.
func (t *Tally) Total() int64 {
	return t.total.Load()
}

// Failed returns the number of failed records seen.
func (t *Tally) Failed() int64 {
	return t.failed.Load()
}
