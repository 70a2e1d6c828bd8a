// Package liveview maintains the reconciled, UI-facing list of the
// current user's reports. It subscribes to the remote per-user report
// collection and, when the realtime channel cannot be established,
// degrades to fixed-interval polling of the same query.
package liveview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

// State of one live view session.
//
//	INIT -> SUBSCRIBING -> STREAMING
//	                  \-> DEGRADED (subscribe error)
//	any state -> TORN_DOWN (Stop / user change)
//
// DEGRADED is not retried back to SUBSCRIBING within a session; a
// fresh Start is the recovery path.
type State string

const (
	StateInit        State = "init"
	StateSubscribing State = "subscribing"
	StateStreaming   State = "streaming"
	StateDegraded    State = "degraded"
	StateTornDown    State = "torn_down"
)

// DefaultPollInterval is the degraded-mode fetch cadence.
const DefaultPollInterval = 5 * time.Second

// Snapshot is the UI-facing view state. Rebuilt wholesale on every
// subscription batch or poll tick, never patched incrementally.
type Snapshot struct {
	Reports []reports.Report `json:"reports"`
	Loading bool             `json:"loading"`
	State   State            `json:"state"`
}

// Controller owns the subscribe/unsubscribe lifecycle for one session.
// Start and Stop are the only mutators; everything else observes.
type Controller struct {
	store        reports.DocumentStore
	collection   string
	pollInterval time.Duration
	log          *slog.Logger

	mu     sync.Mutex
	snap   Snapshot
	cancel context.CancelFunc
	gen    uint64 // bumped on every Start/Stop; stale completions compare against it

	updates chan struct{}
}

func NewController(store reports.DocumentStore, collection string, pollInterval time.Duration, log *slog.Logger) *Controller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:        store,
		collection:   collection,
		pollInterval: pollInterval,
		log:          log,
		snap:         Snapshot{State: StateInit},
		updates:      make(chan struct{}, 1),
	}
}

// Start tears down any active session and, when userID is non-empty,
// begins subscribing for that user. An empty userID behaves like Stop.
func (c *Controller) Start(userID string) {
	c.Stop()
	if userID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.snap = Snapshot{Loading: true, State: StateSubscribing}
	c.mu.Unlock()
	c.notify()

	q := reports.Query{Collection: c.collection, UserID: userID}
	go c.run(ctx, gen, q)
}

// Stop tears down the active session. In-flight fetches that complete
// afterwards are dropped, not applied.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.gen++
	c.snap = Snapshot{State: StateTornDown}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.notify()
}

// Snapshot returns a copy of the current view state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snap
	snap.Reports = append([]reports.Report(nil), c.snap.Reports...)
	return snap
}

// Updates signals after every applied change. Coalescing channel: a
// slow reader sees at least one signal for any burst of changes.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) run(ctx context.Context, gen uint64, q reports.Query) {
	sub, err := c.store.Subscribe(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Any establish failure degrades to polling; precondition
		// failures (missing index) are the expected cause.
		c.log.Warn("realtime subscription unavailable, falling back to polling",
			slog.String("user_id", q.UserID),
			slog.String("error", err.Error()))
		c.poll(ctx, gen, q)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-sub.Batches():
			if !ok {
				return
			}
			c.apply(gen, batch, StateStreaming)
		case err := <-sub.Err():
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("realtime stream broke, falling back to polling",
				slog.String("user_id", q.UserID),
				slog.String("error", err.Error()))
			sub.Close()
			c.poll(ctx, gen, q)
			return
		}
	}
}

// poll replaces push with pull: one-shot fetches of the same query at
// a fixed interval, each replacing the list exactly like a streamed
// batch would.
func (c *Controller) poll(ctx context.Context, gen uint64, q reports.Query) {
	c.setState(gen, StateDegraded)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		batch, err := c.store.FetchOnce(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("poll fetch failed", slog.String("error", err.Error()))
		} else {
			c.apply(gen, batch, StateDegraded)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// apply maps a batch into the snapshot: synthetic timestamps for
// documents whose created_at has not resolved yet (ordering patch
// only, never written back), local re-sort, wholesale replacement.
func (c *Controller) apply(gen uint64, batch []reports.Report, state State) {
	now := time.Now().UTC()
	mapped := append([]reports.Report(nil), batch...)
	for i := range mapped {
		if mapped[i].CreatedAt.IsZero() {
			mapped[i].CreatedAt = now
		}
	}
	reports.SortNewestFirst(mapped)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.snap.Reports = mapped
	c.snap.Loading = false
	c.snap.State = state
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) setState(gen uint64, state State) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.snap.State = state
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
