package badgerstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

func testItem(clientID, tool string) reports.QueuedWriteItem {
	return reports.QueuedWriteItem{
		ClientID:  clientID,
		Payload:   reports.Draft{Tool: tool, Result: json.RawMessage(`{"ok":true}`)},
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPutGetAllDelete(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testItem("a", "dns")))
	require.NoError(t, s.Put(ctx, testItem("b", "whois")))

	items, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	found, err := s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found, "second delete finds nothing")

	items, err = s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ClientID)
}

func TestPutOverwritesSameClientID(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testItem("a", "dns")))
	require.NoError(t, s.Put(ctx, testItem("a", "whois")))

	items, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "whois", items[0].Payload.Tool)
}

func TestClear(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testItem("a", "dns")))
	require.NoError(t, s.Clear(ctx))

	items, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItemsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, testItem("a", "dns")))
	require.NoError(t, s.Close())

	s2, err := Open(dir, nil)
	require.NoError(t, err)
	defer s2.Close()

	items, err := s2.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ClientID)
}
