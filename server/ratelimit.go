package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/pthm-cable/boids/telemetry"
)

// RateLimitConfig configures the per-IP limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // How often idle limiters are dropped
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nanoseconds
}

// IPRateLimiter applies a token bucket per client IP.
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	metrics  *telemetry.Metrics

	stopChan chan struct{}
	stopOnce sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewIPRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewIPRateLimiter(cfg RateLimitConfig, m *telemetry.Metrics) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &IPRateLimiter{
		config:   cfg,
		metrics:  m,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}

	e := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	e.lastSeen.Store(now)
	actual, _ := rl.limiters.LoadOrStore(ip, e)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops limiters idle for two intervals.
func (rl *IPRateLimiter) cleanup() {
	cutoff := time.Now().Add(-2 * rl.config.CleanupInterval).UnixNano()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow reports whether a request from ip may proceed.
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Middleware rejects requests over the limit with 429.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			rl.metrics.RecordRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stats returns the allowed and rejected request counts.
func (rl *IPRateLimiter) Stats() (allowed, rejected uint64) {
	return rl.allowed.Load(), rl.rejected.Load()
}

// ClientIP extracts the client address, preferring proxy headers.
// X-Forwarded-For can be spoofed when not behind a trusted proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// originAllowed matches origin against patterns that may contain a single
// '*' wildcard, the same form go-chi/cors accepts. An empty origin (a
// non-browser client) is allowed.
func originAllowed(patterns []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, p := range patterns {
		if p == "*" || p == origin {
			return true
		}
		if prefix, suffix, ok := strings.Cut(p, "*"); ok {
			if len(origin) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}
	return false
}
