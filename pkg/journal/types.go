// Package journal keeps a history of compiler runs.
//
// Every compile, link and copy performed by a plugin is recorded with its
// outcome, duration and captured output, so `cobble history` can show what
// failed after the terminal output has scrolled away.
//
// Example usage:
//
//	store, err := journal.Open(journal.Config{
//	    DBPath: "~/.config/cobble/journal.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Record(&journal.Record{
//	    Target: "app",
//	    Action: journal.ActionCompile,
//	    Input:  "/project/src/main.cpp",
//	    Status: journal.StatusOK,
//	})
package journal

import "time"

// Action is the kind of work a record describes.
type Action string

const (
	ActionDiscover Action = "discover"
	ActionCompile  Action = "compile"
	ActionLink     Action = "link"
	ActionCopy     Action = "copy"
	ActionDelete   Action = "delete"
)

// Status is the outcome of a record.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Record is one unit of work.
type Record struct {
	// ID is assigned when the record is stored.
	ID string `json:"id"`

	// Time is when the work finished (default: time of recording).
	Time time.Time `json:"time"`

	// Target is the name of the build the work belongs to.
	Target string `json:"target"`

	Action Action `json:"action"`
	Status Status `json:"status"`

	// Input is the source, or the first object for links.
	Input string `json:"input,omitempty"`

	// Output is the produced file.
	Output string `json:"output,omitempty"`

	Command  string        `json:"command,omitempty"`
	ExitCode int           `json:"exit_code,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Failed reports whether the work failed.
func (r *Record) Failed() bool {
	return r.Status == StatusFailed
}

// Recorder accepts records.
type Recorder interface {
	Record(r *Record) error
}

// Store is a queryable Recorder.
type Store interface {
	Recorder

	// List returns matching records, newest first.
	List(filter Filter) ([]*Record, error)

	// Prune deletes records older than before and returns how many were
	// removed.
	Prune(before time.Time) (int, error)

	// Close releases the store.
	Close() error
}

// Filter narrows List.
type Filter struct {
	// Limit caps the number of records (0 means no limit).
	Limit int

	// Status keeps only records with this status when set.
	Status Status

	// Target keeps only records of this build when set.
	Target string
}

func (f Filter) matches(r *Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Target != "" && r.Target != f.Target {
		return false
	}
	return true
}

// Config contains journal configuration.
type Config struct {
	// DBPath is the BoltDB file path. A leading ~ is expanded.
	DBPath string

	// Timeout is how long to wait for the database lock (default: 1 second).
	Timeout time.Duration

	// Retention prunes older records when the journal is opened
	// (0 keeps everything).
	Retention time.Duration
}

// Discard is a Recorder that drops every record.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(*Record) error { return nil }
