package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Server is the observer HTTP server with its websocket hub.
type Server struct {
	source   Source
	router   *chi.Mux
	hub      *Hub
	limiter  *IPRateLimiter
	interval time.Duration
}

// New builds a server from the observer config. Background work starts only
// in Run or StartWorkers.
func New(cfg config.ServerConfig, src Source, m *telemetry.Metrics) *Server {
	s := &Server{
		source:   src,
		hub:      NewHub(cfg.MaxClients, cfg.CORSOrigins, m),
		interval: time.Duration(max(cfg.BroadcastMS, 1)) * time.Millisecond,
	}
	s.limiter = NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, m)
	s.router = NewRouter(RouterConfig{
		Source:         src,
		Metrics:        m,
		RateLimiter:    s.limiter,
		Hub:            s.hub,
		CORSOrigins:    cfg.CORSOrigins,
		FrameWidth:     cfg.FrameWidth,
		DisableLogging: true,
	})
	return s
}

// Router returns the HTTP handler, for httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// StartWorkers runs the hub and its broadcaster until ctx is cancelled.
func (s *Server) StartWorkers(ctx context.Context) {
	go s.hub.Run(ctx)
	go s.hub.Stream(ctx, s.source, s.interval)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	defer s.limiter.Stop()
	s.StartWorkers(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("observer server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("observer server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("observer server shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("observer server: %w", err)
	}
	return nil
}

// Close releases the rate limiter when Run was never called.
func (s *Server) Close() {
	s.limiter.Stop()
}
