// Package event defines the filesystem occurrences that drive a build.
//
// Events are plain values. Ordering between two events for the same path is
// decided by Timestamp alone, never by the order in which they arrive.
package event

import (
	"fmt"
	"path/filepath"
	"time"
)

// Kind identifies what happened to a path.
type Kind uint8

const (
	// AddFile reports a file that appeared (or was seen by an initial scan).
	AddFile Kind = iota

	// ChangeFile reports new content in an existing file.
	ChangeFile

	// DeleteFile reports a file that was removed or renamed away.
	DeleteFile

	// BuildFile is synthetic: a derived artifact was just produced.
	BuildFile
)

// String returns the short name of the kind.
func (k Kind) String() string {
	switch k {
	case AddFile:
		return "add"
	case ChangeFile:
		return "change"
	case DeleteFile:
		return "delete"
	case BuildFile:
		return "build"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Progressive returns the -ing form used in log lines.
func (k Kind) Progressive() string {
	switch k {
	case AddFile:
		return "adding"
	case ChangeFile:
		return "changing"
	case DeleteFile:
		return "deleting"
	case BuildFile:
		return "building"
	default:
		return k.String()
	}
}

// Event describes one occurrence on one path.
type Event struct {
	Kind      Kind
	Path      string
	Timestamp time.Time
}

// New returns an event for path with the path cleaned.
func New(kind Kind, path string, ts time.Time) Event {
	return Event{
		Kind:      kind,
		Path:      filepath.Clean(path),
		Timestamp: ts,
	}
}

// Now returns an event stamped with the current time.
func Now(kind Kind, path string) Event {
	return New(kind, path, time.Now())
}

// After reports whether e supersedes other.
func (e Event) After(other Event) bool {
	return e.Timestamp.After(other.Timestamp)
}

// Derive returns an event of another kind on another path that keeps e's
// timestamp, so consumers of the derived event can still order it.
func (e Event) Derive(kind Kind, path string) Event {
	return New(kind, path, e.Timestamp)
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s @%s", e.Kind, e.Path, e.Timestamp.Format(time.RFC3339Nano))
}
