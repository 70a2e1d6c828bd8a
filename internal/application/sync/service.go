package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
	"github.com/bryanwahyu/reportsync/internal/infra/queue"
)

// Service implements use-cases untuk report persistence.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Store      reports.DocumentStore
	Session    *Session
	Queue      *queue.Queue
	Clock      Clock
	Collection string
	Log        *slog.Logger
}

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

//
// ==== USE CASES ====
//

// Persist pushes one report directly to the remote store and returns
// the remote-assigned id.
//
// A missing tool or result is a programming error (ErrInvalidReport),
// checked before any network call. A logged-out session is a normal
// outcome: Persist returns ("", nil) without touching the network and
// the caller surfaces "log in to save".
//
// Persist never enqueues on failure; handing the draft to the durable
// queue is the caller's policy (see EnqueueFailed). It also never
// updates the live list itself: the subscription is the sole path by
// which the list changes, so the saved report appears only once the
// remote store streams it back.
func (s *Service) Persist(ctx context.Context, d reports.Draft) (reports.ReportID, error) {
	if d.Tool == "" || len(d.Result) == 0 {
		return "", reports.ErrInvalidReport
	}

	userID := s.Session.CurrentUserID()
	if userID == "" {
		return "", nil
	}
	d.UserID = userID

	id, err := s.Store.Create(ctx, s.Collection, d)
	if err != nil {
		return "", err
	}
	s.logger().Debug("report persisted", slog.String("id", string(id)), slog.String("tool", d.Tool))
	return id, nil
}

// Delete removes a report remotely. Fire-and-forget: there is no queue
// path for deletes, so one issued while offline is simply lost.
func (s *Service) Delete(ctx context.Context, id reports.ReportID) error {
	return s.Store.Delete(ctx, s.Collection, id)
}

// EnqueueFailed hands a draft whose Persist failed to the durable
// queue. A fresh client_id is generated when the caller does not carry
// one across retries.
func (s *Service) EnqueueFailed(ctx context.Context, d reports.Draft, clientID string) (reports.QueuedWriteItem, error) {
	if clientID == "" {
		clientID = uuid.New().String()
	}
	item := reports.QueuedWriteItem{
		ClientID:  clientID,
		Payload:   d,
		Timestamp: s.Clock.Now().UTC(),
	}
	queued, err := s.Queue.Enqueue(ctx, item)
	if err != nil {
		return reports.QueuedWriteItem{}, err
	}
	s.logger().Info("report write queued for retry",
		slog.String("client_id", queued.ClientID),
		slog.String("tool", d.Tool))
	return queued, nil
}

// FlushQueue is the caller-owned retry driver: it replays every queued
// item through Persist, removes confirmed ones and bumps retry_count
// on the rest. Returns how many were confirmed and how many remain.
func (s *Service) FlushQueue(ctx context.Context) (flushed, remaining int, err error) {
	items, err := s.Queue.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	if s.Session.CurrentUserID() == "" {
		// Nothing can be confirmed while logged out.
		return 0, len(items), nil
	}

	for _, item := range items {
		id, perr := s.Persist(ctx, item.Payload)
		if perr != nil || id == "" {
			item.RetryCount++
			if _, qerr := s.Queue.Enqueue(ctx, item); qerr != nil {
				return flushed, len(items) - flushed, qerr
			}
			continue
		}
		if _, rerr := s.Queue.Remove(ctx, item.ClientID); rerr != nil {
			return flushed, len(items) - flushed, rerr
		}
		flushed++
	}
	return flushed, len(items) - flushed, nil
}
