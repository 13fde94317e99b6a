package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/pthm-cable/boids/telemetry"
)

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	// Source supplies published frames (required)
	Source Source

	// Metrics records request metrics and backs /metrics. Optional.
	Metrics *telemetry.Metrics

	// RateLimiter limits requests per client IP. Nil disables limiting.
	RateLimiter *IPRateLimiter

	// Hub serves /ws. Nil leaves the route out.
	Hub *Hub

	// CORSOrigins lists allowed origins, with '*' wildcards.
	CORSOrigins []string

	// FrameWidth is the default width of /api/frame.png.
	FrameWidth int

	// DisableLogging drops the request logger (benchmarks).
	DisableLogging bool
}

// NewRouter builds the HTTP router. It starts no goroutines and opens no
// listeners, so tests can wrap it in httptest.NewServer directly.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(instrument(cfg.Metrics))

	// Rate limiting before CORS so rejected requests stay cheap
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{source: cfg.Source, frameWidth: cfg.FrameWidth}

	r.Get("/health", h.handleHealth)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleState)
		r.Get("/stats", h.handleStats)
		r.Get("/frame.png", h.handleFramePNG)
	})

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWS)
	}

	return r
}

// instrument records request latency and status by route pattern. Websocket
// upgrades are skipped since their lifetime is the connection's.
func instrument(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RecordRequest(r.Method, route, status, time.Since(start))
		})
	}
}
