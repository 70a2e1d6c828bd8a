// Package queue implements the durable local write queue: pending
// report writes keyed by a caller-generated client_id, surviving
// crashes, with transparent fallback from the transactional primary
// storage to the simpler file storage when the primary fails.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

// Queue selects between the two storage backings at construction and
// latches onto the fallback after the first primary failure. A failed
// operation is retried wholesale against the fallback, never split, so
// no mutation straddles the backing boundary.
//
// The queue stores and removes items only; scheduling retries and
// bumping retry_count belong to the caller. There is deliberately no
// TTL or size cap.
type Queue struct {
	mu       sync.Mutex
	primary  reports.QueueStorage
	fallback reports.QueueStorage
	degraded bool
	log      *slog.Logger
}

func New(primary, fallback reports.QueueStorage, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{primary: primary, fallback: fallback, log: log}
	if primary == nil {
		q.degraded = true
	}
	return q
}

// Enqueue upserts the item under its client_id. Re-enqueueing after a
// failed retry never duplicates locally; the newer payload wins.
func (q *Queue) Enqueue(ctx context.Context, item reports.QueuedWriteItem) (reports.QueuedWriteItem, error) {
	if item.ClientID == "" {
		return reports.QueuedWriteItem{}, reports.ErrInvalidPayload
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	err := q.run(ctx, "enqueue", func(s reports.QueueStorage) error {
		return s.Put(ctx, item)
	})
	if err != nil {
		return reports.QueuedWriteItem{}, err
	}
	return item, nil
}

func (q *Queue) ListAll(ctx context.Context) ([]reports.QueuedWriteItem, error) {
	var items []reports.QueuedWriteItem
	err := q.run(ctx, "list", func(s reports.QueueStorage) error {
		var err error
		items, err = s.GetAll(ctx)
		return err
	})
	return items, err
}

func (q *Queue) Remove(ctx context.Context, clientID string) (bool, error) {
	var found bool
	err := q.run(ctx, "remove", func(s reports.QueueStorage) error {
		var err error
		found, err = s.Delete(ctx, clientID)
		return err
	})
	return found, err
}

func (q *Queue) Clear(ctx context.Context) error {
	return q.run(ctx, "clear", func(s reports.QueueStorage) error {
		return s.Clear(ctx)
	})
}

// Degraded reports whether the queue has latched onto the fallback storage.
func (q *Queue) Degraded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.degraded
}

// run executes op against the active storage. On a primary failure the
// whole operation is replayed against the fallback and the queue stays
// on the fallback from then on. A fallback failure is the hard one.
func (q *Queue) run(ctx context.Context, op string, fn func(reports.QueueStorage) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if !q.degraded {
		err := fn(q.primary)
		if err == nil {
			return nil
		}
		q.log.Warn("primary queue storage failed, switching to fallback",
			slog.String("op", op),
			slog.String("error", err.Error()))
		q.degraded = true
	}

	if q.fallback == nil {
		return fmt.Errorf("%w: %s: no fallback storage", reports.ErrQueueStorage, op)
	}
	if err := fn(q.fallback); err != nil {
		return fmt.Errorf("%w: %s: %v", reports.ErrQueueStorage, op, err)
	}
	return nil
}
