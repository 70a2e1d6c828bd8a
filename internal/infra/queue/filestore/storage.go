// Package filestore is the simpler fallback behind the durable write
// queue: the whole queue serialized as one JSON array in a single file
// under a fixed name, rewritten wholesale on every mutation. No
// cross-process atomicity beyond the rename; the badger backing is the
// stronger primary.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

// FileName is the fixed namespaced key the queue array lives under.
const FileName = "reportsync.pending_writes.json"

type Storage struct {
	mu   sync.Mutex
	path string
}

func New(dir string) *Storage {
	return &Storage{path: filepath.Join(dir, FileName)}
}

func (s *Storage) Put(ctx context.Context, item reports.QueuedWriteItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if items[i].ClientID == item.ClientID {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	return s.save(items)
}

func (s *Storage) GetAll(ctx context.Context) ([]reports.QueuedWriteItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Storage) Delete(ctx context.Context, clientID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return false, err
	}
	kept := items[:0]
	found := false
	for _, it := range items {
		if it.ClientID == clientID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return false, nil
	}
	return true, s.save(kept)
}

func (s *Storage) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear queue file: %w", err)
	}
	return nil
}

func (s *Storage) load() ([]reports.QueuedWriteItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	var items []reports.QueuedWriteItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode queue file: %w", err)
	}
	return items, nil
}

// save writes the whole array to a temp file and renames it into
// place, so a crash mid-write never leaves a half-written queue.
func (s *Storage) save(items []reports.QueuedWriteItem) error {
	if items == nil {
		items = []reports.QueuedWriteItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode queue file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}
