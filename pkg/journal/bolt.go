package journal

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nullcatalyst/cobble/pkg/logger"
	bolt "go.etcd.io/bbolt"
)

var bucketBuilds = []byte("builds") // time+ID -> record

// boltStore implements Store using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
	mu     sync.RWMutex
	closed bool
}

// Open opens, or creates, the journal database.
func Open(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := ExpandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dbPath)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketBuilds); createErr != nil {
			return fmt.Errorf("failed to create builds bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	s := &boltStore{
		db:     db,
		logger: log,
	}

	if cfg.Retention > 0 {
		n, err := s.Prune(time.Now().Add(-cfg.Retention))
		if err != nil {
			log.Warn("failed to prune journal", "error", err)
		} else if n > 0 {
			log.Debug("journal pruned", "removed", n)
		}
	}

	log.Debug("journal opened", "db_path", dbPath)
	return s, nil
}

// Record implements Recorder.Record.
func (s *boltStore) Record(r *Record) error {
	if err := prepare(r); err != nil {
		return err
	}

	data, err := encode(r)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if putErr := tx.Bucket(bucketBuilds).Put(key(r), data); putErr != nil {
			return fmt.Errorf("failed to store record: %w", putErr)
		}
		return nil
	})
}

// List implements Store.List.
func (s *boltStore) List(filter Filter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	records := make([]*Record, 0, 16)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBuilds).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			r, decodeErr := decode(v)
			if decodeErr != nil {
				s.logger.Warn("failed to decode journal record", "error", decodeErr)
				continue // Skip invalid entries.
			}
			if !filter.matches(r) {
				continue
			}

			records = append(records, r)
			if filter.Limit > 0 && len(records) >= filter.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Prune implements Store.Prune.
func (s *boltStore) Prune(before time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	limit := timeKey(before)
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBuilds)

		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k[:8], limit) < 0; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}

		for _, k := range stale {
			if delErr := b.Delete(k); delErr != nil {
				return fmt.Errorf("failed to delete record: %w", delErr)
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Debug("journal closed")
	return nil
}

// ExpandHome expands ~ in file paths to the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
