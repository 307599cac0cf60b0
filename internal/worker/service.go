// Package worker provides the HTTP query service for supportlens.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/supportlens/supportlens/internal/config"
	"github.com/supportlens/supportlens/internal/grounding"
	"github.com/supportlens/supportlens/internal/interpreter"
	"github.com/supportlens/supportlens/internal/llm"
	"github.com/supportlens/supportlens/internal/query"
	"github.com/supportlens/supportlens/internal/snapshot"
	"github.com/supportlens/supportlens/internal/store"
	"github.com/supportlens/supportlens/internal/watcher"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the request timeout applied by middleware.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRequestBodyBytes limits incoming request bodies. Queries are a few
	// hundred characters; anything larger is not a query.
	MaxRequestBodyBytes = 16 * 1024
)

// Service wires the classifier, interpreter, snapshot cache, context
// builder and tiered store behind the HTTP surface.
type Service struct {
	version string
	config  *config.Config

	// Storage
	store     *store.TieredStore
	redisTier *store.RedisTier

	// Domain services
	snapshots   *snapshot.Cache
	builder     *grounding.Builder
	interpreter *interpreter.Interpreter
	llmClient   *llm.Client

	// HTTP server
	router    *chi.Mux
	server    *http.Server
	startTime time.Time

	// Out-of-band snapshot writes on the file tier
	snapshotWatcher *watcher.Watcher

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the query service. The snapshot is hydrated and the
// refresh loop started by Start.
func NewService(version string) (*Service, error) {
	cfg := config.Get()

	if err := config.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	fileTier, err := store.NewFileTier(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init file tier: %w", err)
	}

	// Remote tier first when configured; local development transparently
	// runs on the filesystem tier alone.
	var tiers []store.Tier
	var redisTier *store.RedisTier
	if cfg.RemoteTierConfigured() {
		redisTier = store.NewRedisTier(cfg.RedisURL, "supportlens")
		tiers = append(tiers, redisTier)
	}
	tiers = append(tiers, fileTier)
	tiered := store.New(tiers...)

	var fetcher snapshot.Fetcher
	if cfg.SnapshotSourceConfigured() {
		fetcher = snapshot.NewHTTPFetcher(cfg.SnapshotSourceURL)
	} else {
		log.Warn().Msg("No snapshot source configured, serving stored snapshot only")
	}
	snapshots := snapshot.NewCache(tiered, fetcher)
	builder := grounding.NewBuilder(snapshots)

	classifier, err := query.NewClassifier()
	if err != nil {
		return nil, fmt.Errorf("load pattern library: %w", err)
	}
	llmClient := llm.NewClient(cfg)
	interp, err := interpreter.New(classifier, llmClient, cfg.InterpretationCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init interpreter: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		version:     version,
		config:      cfg,
		store:       tiered,
		redisTier:   redisTier,
		snapshots:   snapshots,
		builder:     builder,
		interpreter: interp,
		llmClient:   llmClient,
		router:      chi.NewRouter(),
		startTime:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}

	svc.setupMiddleware()
	svc.setupRoutes()
	return svc, nil
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(RequestID)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(middleware.RealIP)
	s.router.Use(SecurityHeaders)
	s.router.Use(MaxBodySize(MaxRequestBodyBytes))
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/health", s.handleHealth)

	s.router.Post("/api/interpret", s.handleInterpret)
	s.router.Post("/api/ask", s.handleAsk)

	s.router.Get("/api/context/status", s.handleContextStatus)
	s.router.Post("/api/context/refresh", s.handleContextRefresh)

	s.router.Get("/api/stats", s.handleStats)
}

// Start hydrates the snapshot, launches the background refresh loop and the
// HTTP server. It returns once the server goroutine is running.
func (s *Service) Start() error {
	if !s.snapshots.Load(s.ctx) {
		log.Warn().Msg("No stored snapshot found, waiting for first refresh")
	}

	if s.config.SnapshotSourceConfigured() {
		if _, err := s.snapshots.Refresh(s.ctx); err != nil {
			log.Warn().Err(err).Msg("Initial snapshot refresh failed")
		}

		interval := time.Duration(s.config.SnapshotRefreshMinutes) * time.Minute
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.snapshots.RunRefreshLoop(s.ctx, interval)
		}()
	}

	s.startSnapshotWatcher()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.WorkerPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	log.Info().Int("port", s.config.WorkerPort).Msg("Query service listening")
	return nil
}

// startSnapshotWatcher watches the file-tier snapshot blob so an
// out-of-band write (manual import, sidecar refresher) reloads the snapshot
// and invalidates the grounding context without waiting for the next tick.
func (s *Service) startSnapshotWatcher() {
	path := config.SnapshotPath()
	w, err := watcher.New(path, func() {
		log.Info().Str("path", path).Msg("Snapshot file changed on disk, reloading")
		if s.snapshots.Load(s.ctx) {
			s.builder.Invalidate()
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create snapshot watcher")
		return
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to start snapshot watcher")
		return
	}
	s.snapshotWatcher = w
}

// Router exposes the configured handler, for tests.
func (s *Service) Router() http.Handler {
	return s.router
}

// Shutdown gracefully stops the service.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	if s.snapshotWatcher != nil {
		_ = s.snapshotWatcher.Stop()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	if s.redisTier != nil {
		if err := s.redisTier.Close(); err != nil {
			log.Error().Err(err).Msg("Redis tier close error")
		}
	}

	s.wg.Wait()
	log.Info().Msg("Query service shutdown complete")
	return nil
}
