package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()

	m.ObserveTick(PerfSample{
		TickDuration: 3 * time.Millisecond,
		Phases:       map[string]time.Duration{PhaseParallel: 2 * time.Millisecond, PhaseCommit: time.Millisecond},
	})
	m.ObserveFlock(500, 7, 3, 1)
	m.ObserveFlock(500, 2, 2, 0)
	m.SetPolarization(0.75)

	if got := testutil.ToFloat64(m.ticks); got != 1 {
		t.Errorf("ticks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.strikes); got != 5 {
		t.Errorf("strikes = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.predated); got != 2 {
		t.Errorf("predated gauge = %v, want latest value 2", got)
	}
	if got := testutil.ToFloat64(m.polarization); got != 0.75 {
		t.Errorf("polarization = %v, want 0.75", got)
	}
	if got := testutil.CollectAndCount(m.phaseDuration); got != 2 {
		t.Errorf("phase series = %d, want 2", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTick(PerfSample{})
	m.ObserveFlock(1, 1, 1, 1)
	m.SetWSClients(3)
	m.RecordRequest("GET", "/health", 200, time.Millisecond)
	m.RecordRejected("rate_limit")
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("GET", "/api/stats", 200, time.Millisecond)
	m.RecordRejected("rate_limit")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"boids_http_requests_total",
		"boids_connections_rejected_total",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
