package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pywr/internal/config"
	"pywr/internal/logging"
	"pywr/internal/obsmetrics"
	"pywr/internal/runcache"
	"pywr/internal/runstore"
	"pywr/internal/telemetry"
)

// Server is `pywr serve`'s HTTP API: submit a model run, poll its status,
// fetch its aggregated results. One process, one in-memory Engine at a
// time per run — see Handlers for the actual run-submission logic.
type Server struct {
	httpServer *http.Server
	cfg        *config.ServeConfig
	telemetry  *telemetry.Provider
	cache      runcache.Cache
	store      *runstore.Store
	tokens     *TokenManager
	limiter    Limiter
	handlers   *Handlers
}

// New builds a Server bound to cfg; store and cache may be nil (an
// in-memory-only, no-persistence deployment), matching how the engine's
// ambient stack treats its optional domain-stack pieces as additive.
func New(cfg *config.ServeConfig, store *runstore.Store, cache runcache.Cache, auth *AuthConfig) *Server {
	tokens := NewTokenManager(auth)
	h := &Handlers{store: store, cache: cache, tokens: tokens, metrics: obsmetrics.Get()}

	limiter, err := NewLimiter(cfg.RateLimit, cfg.Cache.Addr)
	if err != nil {
		logging.Log.Warn("failed to init rate limiter, falling back to in-memory", "error", err)
		limiter = newMemoryLimiter(cfg.RateLimit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) { obsmetrics.Handler().ServeHTTP(w, r) })
	mux.HandleFunc("POST /v1/runs", rateLimit(limiter, h.requireAuth(h.handleSubmitRun)))
	mux.HandleFunc("GET /v1/runs/{id}", h.requireAuth(h.handleGetRun))

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      mux,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		cache:    cache,
		store:    store,
		tokens:   tokens,
		limiter:  limiter,
		handlers: h,
	}
}

// Run starts the HTTP listener and blocks until a shutdown signal arrives,
// then drains in-flight requests within cfg.HTTP.ShutdownTimeout using
// net/http's own graceful Shutdown.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     s.cfg.Tracing.Enabled,
			Endpoint:    s.cfg.Tracing.Endpoint,
			ServiceName: s.cfg.Tracing.ServiceName,
			SampleRate:  s.cfg.Tracing.SampleRate,
		})
		if err != nil {
			logging.Log.Warn("failed to init telemetry", "error", err)
		} else {
			s.telemetry = tp
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Log.Info("starting pywr serve", "port", s.cfg.HTTP.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Log.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logging.Log.Info("context cancelled, shutting down")
	}

	shutdownTimeout := s.cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(shutdownCtx); err != nil {
			logging.Log.Warn("failed to shutdown telemetry", "error", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			logging.Log.Warn("failed to close run cache", "error", err)
		}
	}
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			logging.Log.Warn("failed to close rate limiter", "error", err)
		}
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Log.Warn("forcing server close", "error", err)
		return s.httpServer.Close()
	}
	logging.Log.Info("server stopped gracefully")
	return nil
}
