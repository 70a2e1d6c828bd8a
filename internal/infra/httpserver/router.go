package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/reportsync/internal/application/liveview"
	appsync "github.com/bryanwahyu/reportsync/internal/application/sync"
	"github.com/bryanwahyu/reportsync/internal/cache"
	"github.com/bryanwahyu/reportsync/internal/domain/providers"
	"github.com/bryanwahyu/reportsync/internal/domain/reports"
	"github.com/bryanwahyu/reportsync/internal/middleware"
)

type Router struct {
	syncSvc  *appsync.Service
	live     *liveview.Controller
	cache    *cache.Cache
	registry *providers.Registry
	session  *appsync.Session
}

func NewRouter(
	syncSvc *appsync.Service,
	live *liveview.Controller,
	readCache *cache.Cache,
	registry *providers.Registry,
	session *appsync.Session,
) http.Handler {
	r := &Router{
		syncSvc:  syncSvc,
		live:     live,
		cache:    readCache,
		registry: registry,
		session:  session,
	}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"queue": middleware.CheckerFunc(func(ctx context.Context) error {
			_, err := syncSvc.Queue.ListAll(ctx)
			return err
		}),
	}))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/tools/{tool}", r.wrap(r.handleRunTool))
		rt.Get("/tools", r.wrap(r.handleListTools))

		rt.Get("/reports", r.wrap(r.handleReports))
		rt.Delete("/reports/{id}", r.wrap(r.handleDeleteReport))

		rt.Get("/queue", r.wrap(r.handleQueueList))
		rt.Post("/queue/flush", r.wrap(r.handleQueueFlush))
		rt.Delete("/queue", r.wrap(r.handleQueueClear))

		rt.Post("/session", r.wrap(r.handleSessionSet))
		rt.Delete("/session", r.wrap(r.handleSessionClear))

		rt.Delete("/cache", r.wrap(r.handleCacheClear))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, reports.ErrInvalidReport), errors.Is(err, reports.ErrInvalidPayload):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, providers.ErrUnknownTool):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, reports.ErrPermissionDenied):
				http.Error(w, err.Error(), http.StatusForbidden)
			case errors.Is(err, reports.ErrPrecondition):
				http.Error(w, err.Error(), http.StatusPreconditionFailed)
			case errors.Is(err, reports.ErrUnavailable):
				http.Error(w, err.Error(), http.StatusBadGateway)
			case errors.Is(err, reports.ErrQueueStorage):
				http.Error(w, err.Error(), http.StatusInternalServerError)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// POST /v1/tools/{tool}
// Body: {"query": "<target>", "no_cache": false}
// Runs the provider (or serves a cached result), then persists the
// report. A failed remote write hands the draft to the durable queue
// and still returns the result to the caller.
func (r *Router) handleRunTool(w http.ResponseWriter, req *http.Request) error {
	tool := chi.URLParam(req, "tool")
	var body struct {
		Query   string `json:"query"`
		NoCache bool   `json:"no_cache"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	provider, kind, ok := r.registry.Get(tool)
	if !ok {
		return fmt.Errorf("%w: %s", providers.ErrUnknownTool, tool)
	}

	// Per-kind sanitization: a dns query is reduced to a bare
	// hostname, an ip validated, and so on. The sanitized form is
	// also the cache key, so equivalent spellings share one entry.
	query, err := middleware.SanitizeInput(string(kind), body.Query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	middleware.IncrementToolRuns()

	// The read cache intercepts repeated queries before a new run is
	// even attempted. Cached results are not re-persisted.
	if !body.NoCache {
		if result, ok := r.cache.Get(tool, query); ok {
			middleware.IncrementCacheHits()
			return writeJSON(w, map[string]any{
				"tool":   tool,
				"query":  query,
				"result": result,
				"cached": true,
			})
		}
	}
	middleware.IncrementCacheMisses()

	result, err := provider.Run(req.Context(), query)
	if err != nil {
		return fmt.Errorf("run %s: %w", tool, err)
	}
	r.cache.Set(tool, query, result)

	draft := reports.Draft{Tool: tool, Result: result, Input: query}
	saved := "saved"
	id, perr := r.syncSvc.Persist(req.Context(), draft)
	switch {
	case perr != nil:
		middleware.IncrementPersistFailures()
		if _, qerr := r.syncSvc.EnqueueFailed(req.Context(), draft, ""); qerr != nil {
			return qerr
		}
		saved = "queued"
	case id == "":
		saved = "not_authenticated"
	}

	return writeJSON(w, map[string]any{
		"tool":   tool,
		"query":  query,
		"result": result,
		"cached": false,
		"id":     id,
		"saved":  saved,
	})
}

// GET /v1/tools
func (r *Router) handleListTools(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, map[string]any{"tools": r.registry.Names()})
}

// GET /v1/reports
func (r *Router) handleReports(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, r.live.Snapshot())
}

// DELETE /v1/reports/{id}
func (r *Router) handleDeleteReport(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := r.syncSvc.Delete(req.Context(), reports.ReportID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/queue
func (r *Router) handleQueueList(w http.ResponseWriter, req *http.Request) error {
	items, err := r.syncSvc.Queue.ListAll(req.Context())
	if err != nil {
		return err
	}
	if items == nil {
		items = []reports.QueuedWriteItem{}
	}
	return writeJSON(w, map[string]any{
		"items":    items,
		"count":    len(items),
		"degraded": r.syncSvc.Queue.Degraded(),
	})
}

// POST /v1/queue/flush
func (r *Router) handleQueueFlush(w http.ResponseWriter, req *http.Request) error {
	flushed, remaining, err := r.syncSvc.FlushQueue(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"flushed": flushed, "remaining": remaining})
}

// DELETE /v1/queue
func (r *Router) handleQueueClear(w http.ResponseWriter, req *http.Request) error {
	if err := r.syncSvc.Queue.Clear(req.Context()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/session
// Body: {"user_id": "...", "token": "..."}
// Rebinds the live view to the new user.
func (r *Router) handleSessionSet(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if body.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return nil
	}
	r.session.Set(body.UserID, body.Token)
	return writeJSON(w, map[string]any{"user_id": body.UserID})
}

// DELETE /v1/session
func (r *Router) handleSessionClear(w http.ResponseWriter, _ *http.Request) error {
	r.session.Clear()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /v1/cache?tool=dns
func (r *Router) handleCacheClear(w http.ResponseWriter, req *http.Request) error {
	if tool := req.URL.Query().Get("tool"); tool != "" {
		r.cache.Clear(tool)
	} else {
		r.cache.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}
