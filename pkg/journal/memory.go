package journal

import (
	"sort"
	"sync"
	"time"
)

// memoryStore implements Store in memory.
// Useful for testing and for runs with the journal disabled.
type memoryStore struct {
	records []*Record
	mu      sync.RWMutex
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{}
}

// Record implements Recorder.Record.
func (s *memoryStore) Record(r *Record) error {
	if err := prepare(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *r
	s.records = append(s.records, &stored)
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].Time.Before(s.records[j].Time)
	})
	return nil
}

// List implements Store.List.
func (s *memoryStore) List(filter Filter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if !filter.matches(r) {
			continue
		}

		copied := *r
		out = append(out, &copied)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Prune implements Store.Prune.
func (s *memoryStore) Prune(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if !r.Time.Before(before) {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	s.records = kept
	return removed, nil
}

// Close implements Store.Close.
func (s *memoryStore) Close() error {
	return nil
}
