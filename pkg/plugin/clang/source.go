package clang

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nullcatalyst/cobble/pkg/event"
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// source is the watch graph of one translation unit: its headers, itself
// and its object.
type source struct {
	build *build
	src   string
	obj   string

	mu       sync.Mutex
	disposed bool
	headers  map[string]*subscription
	// stamp is the timestamp of the event that produced headers.
	stamp time.Time
	self  []*subscription
}

// subscription is a mailbox-wrapped watch registration.
type subscription struct {
	handle *watcher.Handle
	box    mailbox.Box
}

func (s *subscription) close() {
	s.handle.Close()
	s.box.Close()
}

func newSource(b *build, src, obj string, headers []string) *source {
	s := &source{
		build:   b,
		src:     src,
		obj:     obj,
		headers: make(map[string]*subscription, len(headers)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, hdr := range headers {
		s.headers[hdr] = s.subscribe(hdr, s.onHeader)
	}
	s.self = append(s.self, s.subscribe(src, s.onSource))
	if b.settings.OutputPath != "" {
		s.self = append(s.self, s.subscribe(obj, b.linkFn))
	}
	return s
}

func (s *source) subscribe(path string, cb mailbox.Callback) *subscription {
	box := s.build.plugin.mailboxes(cb)
	return &subscription{
		handle: s.build.watcher.Add(path, mailbox.Listener(box)),
		box:    box,
	}
}

func (s *source) onHeader(ctx context.Context, e event.Event) error {
	return s.compile(ctx, e)
}

func (s *source) onSource(ctx context.Context, e event.Event) error {
	if e.Kind == event.DeleteFile {
		s.build.logger.Info("source deleted", "src", s.src)
		s.setHeaders(nil, e.Timestamp)
		return nil
	}

	deps, err := s.build.plugin.toolchain.Dependencies(ctx, []string{s.src}, s.build.opts)
	if err != nil {
		return fmt.Errorf("failed to rediscover dependencies of %s: %w", s.src, err)
	}
	s.setHeaders(deps[s.src], e.Timestamp)

	return s.compile(ctx, e)
}

// compile rebuilds the object and hands the result to the link stage with
// the timestamp of the triggering event.
func (s *source) compile(ctx context.Context, e event.Event) error {
	if err := s.build.compile(ctx, s.src, s.obj); err != nil {
		return err
	}
	s.build.watcher.Emit(ctx, e.Derive(event.BuildFile, s.obj))
	return nil
}

// setHeaders swaps the header subscriptions for hdrs. A header set
// discovered for an older event than the applied one is ignored, and a
// disposed source never subscribes again.
func (s *source) setHeaders(hdrs []string, stamp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || stamp.Before(s.stamp) {
		return
	}
	s.stamp = stamp

	next := make(map[string]*subscription, len(hdrs))
	for _, hdr := range hdrs {
		if sub, ok := s.headers[hdr]; ok {
			next[hdr] = sub
			delete(s.headers, hdr)
			continue
		}
		if _, dup := next[hdr]; !dup {
			next[hdr] = s.subscribe(hdr, s.onHeader)
		}
	}
	for _, stale := range s.headers {
		stale.close()
	}
	s.headers = next
}

// watchedHeaders returns the headers currently subscribed to.
func (s *source) watchedHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.headers))
	for hdr := range s.headers {
		out = append(out, hdr)
	}
	return out
}

func (s *source) dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true

	for _, sub := range s.headers {
		sub.close()
	}
	s.headers = nil
	for _, sub := range s.self {
		sub.close()
	}
	s.self = nil
}
