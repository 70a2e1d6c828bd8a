package reports

import "context"

// Query describes the per-user report listing: filtered to one user,
// ordered by created_at descending.
type Query struct {
	Collection string
	UserID     string
}

// DocumentStore port (interface untuk remote persistence)
type DocumentStore interface {
	// Create stores the draft and returns the remote-assigned id.
	// created_at is assigned server-side.
	Create(ctx context.Context, collection string, d Draft) (ReportID, error)

	// Delete removes one document. Direct and unqueued.
	Delete(ctx context.Context, collection string, id ReportID) error

	// FetchOnce runs the query once and returns the current batch.
	FetchOnce(ctx context.Context, q Query) ([]Report, error)

	// Subscribe opens a realtime stream of full snapshot batches for
	// the query. Fails with ErrPrecondition when the realtime channel
	// cannot be established (e.g. missing server-side index).
	Subscribe(ctx context.Context, q Query) (Subscription, error)
}

// Subscription is an open realtime stream. Each value on Batches is a
// complete snapshot, not a diff.
type Subscription interface {
	Batches() <-chan []Report
	Err() <-chan error
	Close() error
}

// QueueStorage port (interface untuk local durable storage).
// Implementations must apply each operation atomically.
type QueueStorage interface {
	Put(ctx context.Context, item QueuedWriteItem) error
	GetAll(ctx context.Context) ([]QueuedWriteItem, error)
	Delete(ctx context.Context, clientID string) (bool, error)
	Clear(ctx context.Context) error
}
