// Package badgerstore backs the durable write queue with BadgerDB, a
// transactional embedded key-value store. One record per client_id;
// every operation runs inside a single badger transaction, which is
// what makes queue mutations safe when several agent processes share
// the same data directory.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

const keyPrefix = "pending/"

type Storage struct {
	db *badger.DB
}

// Open opens (or creates) the queue database at dir. SyncWrites is on:
// an enqueued item must survive a crash.
func Open(dir string, logger *slog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create queue directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	return &Storage{db: db}, nil
}

// OpenInMemory opens a non-persistent instance, for tests.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory queue database: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error { return s.db.Close() }

// Put upserts the item under its client_id.
func (s *Storage) Put(ctx context.Context, item reports.QueuedWriteItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal queued item: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(item.ClientID), data)
	})
}

func (s *Storage) GetAll(ctx context.Context) ([]reports.QueuedWriteItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var items []reports.QueuedWriteItem
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var item reports.QueuedWriteItem
				if err := json.Unmarshal(val, &item); err != nil {
					return fmt.Errorf("unmarshal queued item: %w", err)
				}
				items = append(items, item)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes the item and reports whether it existed.
func (s *Storage) Delete(ctx context.Context, clientID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(clientID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return txn.Delete(key(clientID))
	})
	return found, err
}

func (s *Storage) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.DropPrefix([]byte(keyPrefix))
}

func key(clientID string) []byte {
	return []byte(keyPrefix + clientID)
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
