package liveview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

type fakeSub struct {
	batches chan []reports.Report
	errs    chan error
	closed  bool
}

func newFakeSub() *fakeSub {
	return &fakeSub{
		batches: make(chan []reports.Report, 4),
		errs:    make(chan error, 1),
	}
}

func (s *fakeSub) Batches() <-chan []reports.Report { return s.batches }
func (s *fakeSub) Err() <-chan error                { return s.errs }
func (s *fakeSub) Close() error                     { s.closed = true; return nil }

type fakeStore struct {
	mu         sync.Mutex
	subErr     error
	sub        *fakeSub
	fetchBatch []reports.Report
	fetchCalls int
}

func (f *fakeStore) Create(_ context.Context, _ string, _ reports.Draft) (reports.ReportID, error) {
	return "", nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, _ reports.ReportID) error { return nil }

func (f *fakeStore) FetchOnce(_ context.Context, _ reports.Query) ([]reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return append([]reports.Report(nil), f.fetchBatch...), nil
}

func (f *fakeStore) Subscribe(_ context.Context, _ reports.Query) (reports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.sub, nil
}

func waitFor(t *testing.T, c *Controller, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = c.Snapshot()
		return cond(snap)
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestStreamingReplacesListWholesale(t *testing.T) {
	sub := newFakeSub()
	store := &fakeStore{sub: sub}
	c := NewController(store, "reports", time.Hour, nil)
	defer c.Stop()

	c.Start("user-1")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sub.batches <- []reports.Report{
		{ID: "a", CreatedAt: base},
		{ID: "b", CreatedAt: base.Add(time.Minute)},
	}
	snap := waitFor(t, c, func(s Snapshot) bool { return len(s.Reports) == 2 })
	assert.Equal(t, StateStreaming, snap.State)
	assert.False(t, snap.Loading)
	assert.Equal(t, reports.ReportID("b"), snap.Reports[0].ID, "newest first")

	// A later batch fully replaces the earlier one.
	sub.batches <- []reports.Report{{ID: "c", CreatedAt: base.Add(2 * time.Minute)}}
	snap = waitFor(t, c, func(s Snapshot) bool { return len(s.Reports) == 1 })
	assert.Equal(t, reports.ReportID("c"), snap.Reports[0].ID)
}

func TestLoadingUntilFirstBatch(t *testing.T) {
	sub := newFakeSub()
	store := &fakeStore{sub: sub}
	c := NewController(store, "reports", time.Hour, nil)
	defer c.Stop()

	c.Start("user-1")
	snap := c.Snapshot()
	assert.True(t, snap.Loading)

	sub.batches <- []reports.Report{}
	snap = waitFor(t, c, func(s Snapshot) bool { return !s.Loading })
	assert.Equal(t, StateStreaming, snap.State)
}

func TestPreconditionFailureActivatesPolling(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		subErr:     reports.ErrPrecondition,
		fetchBatch: []reports.Report{{ID: "a", CreatedAt: base}},
	}
	c := NewController(store, "reports", 5*time.Millisecond, nil)
	defer c.Stop()

	c.Start("user-1")
	snap := waitFor(t, c, func(s Snapshot) bool {
		return s.State == StateDegraded && !s.Loading && len(s.Reports) == 1
	})
	assert.Equal(t, reports.ReportID("a"), snap.Reports[0].ID)

	// The poller keeps pulling; a remote change shows up on a later tick.
	store.mu.Lock()
	store.fetchBatch = append(store.fetchBatch, reports.Report{ID: "b", CreatedAt: base.Add(time.Minute)})
	store.mu.Unlock()

	snap = waitFor(t, c, func(s Snapshot) bool { return len(s.Reports) == 2 })
	assert.Equal(t, reports.ReportID("b"), snap.Reports[0].ID)
	assert.Equal(t, StateDegraded, snap.State, "no automatic re-subscribe within a session")
}

func TestStreamErrorFallsBackToPolling(t *testing.T) {
	sub := newFakeSub()
	store := &fakeStore{sub: sub, fetchBatch: []reports.Report{{ID: "a"}}}
	c := NewController(store, "reports", 5*time.Millisecond, nil)
	defer c.Stop()

	c.Start("user-1")
	sub.errs <- reports.ErrUnavailable

	waitFor(t, c, func(s Snapshot) bool {
		return s.State == StateDegraded && len(s.Reports) == 1
	})
	assert.True(t, sub.closed)
}

func TestSyntheticTimestampForPendingCreatedAt(t *testing.T) {
	sub := newFakeSub()
	store := &fakeStore{sub: sub}
	c := NewController(store, "reports", time.Hour, nil)
	defer c.Stop()

	c.Start("user-1")
	sub.batches <- []reports.Report{{ID: "pending"}}

	snap := waitFor(t, c, func(s Snapshot) bool { return len(s.Reports) == 1 })
	assert.False(t, snap.Reports[0].CreatedAt.IsZero(),
		"unresolved created_at gets a read-time fallback for ordering")
}

func TestStopDropsLateCompletions(t *testing.T) {
	sub := newFakeSub()
	store := &fakeStore{sub: sub}
	c := NewController(store, "reports", time.Hour, nil)

	c.Start("user-1")
	c.Stop()

	// A batch completing after teardown must not reach the snapshot.
	sub.batches <- []reports.Report{{ID: "late"}}
	time.Sleep(30 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, StateTornDown, snap.State)
	assert.Empty(t, snap.Reports)
}

func TestStartForNewUserTearsDownPreviousSession(t *testing.T) {
	first := newFakeSub()
	store := &fakeStore{sub: first}
	c := NewController(store, "reports", time.Hour, nil)
	defer c.Stop()

	c.Start("user-1")
	first.batches <- []reports.Report{{ID: "old"}}
	waitFor(t, c, func(s Snapshot) bool { return len(s.Reports) == 1 })

	second := newFakeSub()
	store.mu.Lock()
	store.sub = second
	store.mu.Unlock()

	c.Start("user-2")
	second.batches <- []reports.Report{{ID: "new"}}

	snap := waitFor(t, c, func(s Snapshot) bool {
		return len(s.Reports) == 1 && s.Reports[0].ID == "new"
	})
	assert.Equal(t, StateStreaming, snap.State)

	// The first session's stream is dead; its late batches are ignored.
	first.batches <- []reports.Report{{ID: "stale"}}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, reports.ReportID("new"), c.Snapshot().Reports[0].ID)
}

func TestStartWithEmptyUserActsAsStop(t *testing.T) {
	store := &fakeStore{sub: newFakeSub()}
	c := NewController(store, "reports", time.Hour, nil)

	c.Start("user-1")
	c.Start("")

	assert.Equal(t, StateTornDown, c.Snapshot().State)
}
