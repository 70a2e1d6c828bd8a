package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reportsync/internal/application/liveview"
	appsync "github.com/bryanwahyu/reportsync/internal/application/sync"
	"github.com/bryanwahyu/reportsync/internal/cache"
	"github.com/bryanwahyu/reportsync/internal/domain/providers"
	"github.com/bryanwahyu/reportsync/internal/domain/reports"
	"github.com/bryanwahyu/reportsync/internal/infra/queue"
)

type fakeStore struct {
	createCalls int
	createErr   error
}

func (f *fakeStore) Create(_ context.Context, _ string, _ reports.Draft) (reports.ReportID, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "doc-1", nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, _ reports.ReportID) error { return nil }

func (f *fakeStore) FetchOnce(_ context.Context, _ reports.Query) ([]reports.Report, error) {
	return nil, nil
}

func (f *fakeStore) Subscribe(_ context.Context, _ reports.Query) (reports.Subscription, error) {
	return nil, reports.ErrPrecondition
}

type memStorage struct {
	items map[string]reports.QueuedWriteItem
}

func newMemStorage() *memStorage {
	return &memStorage{items: make(map[string]reports.QueuedWriteItem)}
}

func (m *memStorage) Put(_ context.Context, item reports.QueuedWriteItem) error {
	m.items[item.ClientID] = item
	return nil
}

func (m *memStorage) GetAll(_ context.Context) ([]reports.QueuedWriteItem, error) {
	out := make([]reports.QueuedWriteItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memStorage) Delete(_ context.Context, clientID string) (bool, error) {
	_, ok := m.items[clientID]
	delete(m.items, clientID)
	return ok, nil
}

func (m *memStorage) Clear(_ context.Context) error {
	m.items = make(map[string]reports.QueuedWriteItem)
	return nil
}

// recordingProvider captures the queries it was run with.
type recordingProvider struct {
	queries []string
	result  json.RawMessage
}

func (p *recordingProvider) Run(_ context.Context, q string) (json.RawMessage, error) {
	p.queries = append(p.queries, q)
	return p.result, nil
}

func newTestRouter(store *fakeStore, registry *providers.Registry) (http.Handler, *appsync.Session, *appsync.Service) {
	session := &appsync.Session{}
	svc := &appsync.Service{
		Store:      store,
		Session:    session,
		Queue:      queue.New(newMemStorage(), nil, slog.Default()),
		Clock:      appsync.SystemClock{},
		Collection: "reports",
		Log:        slog.Default(),
	}
	live := liveview.NewController(store, "reports", time.Hour, nil)
	h := NewRouter(svc, live, cache.New(10), registry, session)
	return h, session, svc
}

func runTool(h http.Handler, tool, query string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/v1/tools/"+tool, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type runToolResponse struct {
	Query  string          `json:"query"`
	Result json.RawMessage `json:"result"`
	Cached bool            `json:"cached"`
	ID     string          `json:"id"`
	Saved  string          `json:"saved"`
}

func TestRunToolQueuesDraftWhenPersistFails(t *testing.T) {
	store := &fakeStore{createErr: reports.ErrUnavailable}
	registry := providers.NewRegistry()
	registry.Register("dns", providers.InputHostname, &recordingProvider{result: json.RawMessage(`{"ok":true}`)})
	h, session, svc := newTestRouter(store, registry)
	session.Set("user-1", "tok")

	rec := runTool(h, "dns", "example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp runToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Saved)
	assert.Empty(t, resp.ID)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result), "the result still reaches the caller")

	items, err := svc.Queue.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "dns", items[0].Payload.Tool)
	assert.Equal(t, "example.com", items[0].Payload.Input)
	assert.NotEmpty(t, items[0].ClientID)
}

func TestRunToolCacheHitSkipsProviderAndPersistence(t *testing.T) {
	store := &fakeStore{}
	provider := &recordingProvider{result: json.RawMessage(`{"ok":true}`)}
	registry := providers.NewRegistry()
	registry.Register("dns", providers.InputHostname, provider)
	h, session, svc := newTestRouter(store, registry)
	session.Set("user-1", "tok")

	rec := runTool(h, "dns", "example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	var first runToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.False(t, first.Cached)
	assert.Equal(t, "saved", first.Saved)
	assert.Equal(t, "doc-1", first.ID)

	rec = runTool(h, "dns", "example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	var second runToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Cached)

	assert.Len(t, provider.queries, 1, "cached result must not rerun the provider")
	assert.Equal(t, 1, store.createCalls, "cached result must not re-persist")

	items, err := svc.Queue.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRunToolSanitizesQueryPerInputKind(t *testing.T) {
	provider := &recordingProvider{result: json.RawMessage(`{"ok":true}`)}
	registry := providers.NewRegistry()
	registry.Register("dns", providers.InputHostname, provider)
	h, _, _ := newTestRouter(&fakeStore{}, registry)

	rec := runTool(h, "dns", "HTTPS://Example.COM/path")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp runToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "example.com", resp.Query)
	require.Len(t, provider.queries, 1)
	assert.Equal(t, "example.com", provider.queries[0], "provider sees the bare hostname")

	// Equivalent spellings share the sanitized cache key.
	rec = runTool(h, "dns", " example.com ")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Len(t, provider.queries, 1)
}

func TestRunToolRejectsInvalidInputForKind(t *testing.T) {
	provider := &recordingProvider{result: json.RawMessage(`{"ok":true}`)}
	registry := providers.NewRegistry()
	registry.Register("dns", providers.InputHostname, provider)
	registry.Register("reverse-dns", providers.InputIP, provider)
	h, _, _ := newTestRouter(&fakeStore{}, registry)

	rec := runTool(h, "dns", "exa mple.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = runTool(h, "reverse-dns", "999.1.1.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, provider.queries, "rejected input never reaches a provider")
}

func TestRunToolUnknownToolIs404(t *testing.T) {
	h, _, _ := newTestRouter(&fakeStore{}, providers.NewRegistry())

	rec := runTool(h, "nope", "example.com")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunToolLoggedOutReportsNotAuthenticated(t *testing.T) {
	store := &fakeStore{}
	registry := providers.NewRegistry()
	registry.Register("dns", providers.InputHostname, &recordingProvider{result: json.RawMessage(`{"ok":true}`)})
	h, _, svc := newTestRouter(store, registry)

	rec := runTool(h, "dns", "example.com")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp runToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_authenticated", resp.Saved)
	assert.Equal(t, 0, store.createCalls)

	items, err := svc.Queue.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "a logged-out run is not a failure, nothing is queued")
}
