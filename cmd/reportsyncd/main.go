package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/reportsync/internal/application/liveview"
	appsync "github.com/bryanwahyu/reportsync/internal/application/sync"
	"github.com/bryanwahyu/reportsync/internal/cache"
	"github.com/bryanwahyu/reportsync/internal/config"
	"github.com/bryanwahyu/reportsync/internal/domain/providers"
	openaiProvider "github.com/bryanwahyu/reportsync/internal/infra/ai/openai"
	"github.com/bryanwahyu/reportsync/internal/infra/httpserver"
	"github.com/bryanwahyu/reportsync/internal/infra/queue"
	"github.com/bryanwahyu/reportsync/internal/infra/queue/badgerstore"
	"github.com/bryanwahyu/reportsync/internal/infra/queue/filestore"
	"github.com/bryanwahyu/reportsync/internal/infra/remote"
	"github.com/bryanwahyu/reportsync/internal/infra/tools"
	"github.com/bryanwahyu/reportsync/internal/middleware"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Error("config load error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// durable queue: badger primary, flat file fallback. A primary
	// that fails to even open is the first fallback trigger.
	var primary *badgerstore.Storage
	primary, err = badgerstore.Open(cfg.QueueDir(), log)
	if err != nil {
		log.Warn("badger queue storage unavailable, starting on fallback",
			slog.String("error", err.Error()))
		primary = nil
	} else {
		defer primary.Close()
	}
	fallback := filestore.New(cfg.QueueDir())

	var writeQueue *queue.Queue
	if primary != nil {
		writeQueue = queue.New(primary, fallback, log)
	} else {
		writeQueue = queue.New(nil, fallback, log)
	}

	// identity session + remote store client
	session := &appsync.Session{}
	store := remote.New(cfg.Remote.BaseURL, session.Token, log)

	// init services
	syncSvc := &appsync.Service{
		Store:      store,
		Session:    session,
		Queue:      writeQueue,
		Clock:      appsync.SystemClock{},
		Collection: cfg.Collection(),
		Log:        log,
	}
	live := liveview.NewController(store, cfg.Collection(), cfg.PollInterval(), log)
	defer live.Stop()

	// rebind the live view whenever the user changes (or logs out)
	go func() {
		for userID := range session.Watch() {
			live.Start(userID)
		}
	}()

	// read cache + analysis providers
	readCache := cache.New(cfg.CacheCapacity(), cfg.SensitiveTools()...)

	registry := providers.NewRegistry()
	registry.Register("dns", providers.InputHostname, tools.NewDNSLookup())
	registry.Register("reverse-dns", providers.InputIP, tools.NewReverseDNS())
	registry.Register("headers", providers.InputURL, tools.NewHeaders())
	registry.Register("hash", providers.InputText, tools.NewDigest())
	if cfg.AI.APIKey != "" {
		registry.Register("ai-analyst", providers.InputText, openaiProvider.NewClient(cfg.AI.APIKey, cfg.AI.Model))
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.Server.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           3600,
		}))
	}
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}
	mux.Use(middleware.APIKeyAuth(cfg.Server.APIKey))
	mux.Mount("/", httpserver.NewRouter(syncSvc, live, readCache, registry, session))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info("agent listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down agent...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
}
