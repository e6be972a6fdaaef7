// Package badger implements core.MemoryStore on BadgerDB.
//
// Entries are stored as JSON under mem/<app>/<user>/<eventID>, so a user's
// memories form one key prefix and search is a prefix scan.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/memory"
)

var _ core.MemoryStore = (*Store)(nil)

// Options configures the store.
type Options struct {
	// Dir holds the data files. Required unless InMemory is set.
	Dir string
	// InMemory runs badger without disk persistence.
	InMemory bool
	Logger   logging.Logger
}

// Store is a badger-backed memory store.
type Store struct {
	db *badger.DB
}

// Open opens the database.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("memory store: Dir is required for on-disk mode")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{opts.Logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error { return s.db.Close() }

func prefix(app, user string) []byte {
	return []byte("mem/" + app + "/" + user + "/")
}

// AddSession writes one entry per text event in a single batch.
func (s *Store) AddSession(_ context.Context, sess *core.Session) error {
	entries := memory.EntriesFromSession(sess)
	if len(entries) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	p := prefix(sess.AppName, sess.UserID)
	for _, e := range entries {
		val, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode memory %s: %w", e.ID, err)
		}
		key := append(append([]byte{}, p...), e.ID...)
		if err := wb.Set(key, val); err != nil {
			return fmt.Errorf("write memory %s: %w", e.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush memories: %w", err)
	}
	return nil
}

// Search scans the user's prefix and ranks the entries against query.
func (s *Store) Search(ctx context.Context, appName, userID, query string, limit int) ([]core.MemoryEntry, error) {
	p := prefix(appName, userID)
	var candidates []core.MemoryEntry
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = p
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var e core.MemoryEntry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("decode memory %s: %w", it.Item().Key(), err)
			}
			candidates = append(candidates, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	return memory.Rank(candidates, query, limit), nil
}

// badgerLogger routes badger output to a logging.Logger, dropping debug
// chatter.
type badgerLogger struct{ l logging.Logger }

func (b badgerLogger) Errorf(f string, v ...any)   { b.l.Error("badger: " + fmt.Sprintf(f, v...)) }
func (b badgerLogger) Warningf(f string, v ...any) { b.l.Warn("badger: " + fmt.Sprintf(f, v...)) }
func (b badgerLogger) Infof(string, ...any)        {}
func (b badgerLogger) Debugf(string, ...any)       {}
