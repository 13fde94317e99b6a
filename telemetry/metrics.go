package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports simulation and observer metrics to Prometheus. Label values
// are bounded: phase names, route patterns and fixed rejection reasons.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	tickDuration  prometheus.Histogram
	phaseDuration *prometheus.HistogramVec
	ticks         prometheus.Counter

	agents       prometheus.Gauge
	predated     prometheus.Gauge
	polarization prometheus.Gauge
	strikes      prometheus.Counter
	collisions   prometheus.Counter

	wsClients      prometheus.Gauge
	wsMessages     prometheus.Counter
	requestLatency *prometheus.HistogramVec
	requestTotal   *prometheus.CounterVec
	rejected       *prometheus.CounterVec
}

// NewMetrics creates the metrics on a private registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "boids_tick_duration_seconds",
			Help:    "Wall time of one simulation tick",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boids_phase_duration_seconds",
			Help:    "Wall time of one tick phase",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"phase"}),
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "boids_ticks_total",
			Help: "Completed simulation ticks",
		}),

		agents: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_agents",
			Help: "Regular agents in the arena",
		}),
		predated: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_predated_agents",
			Help: "Agents inside the predator's strike radius",
		}),
		polarization: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_polarization",
			Help: "Length of the mean unit heading, 0 to 1",
		}),
		strikes: f.NewCounter(prometheus.CounterOpts{
			Name: "boids_predator_strikes_total",
			Help: "Agents struck by the predator",
		}),
		collisions: f.NewCounter(prometheus.CounterOpts{
			Name: "boids_collisions_total",
			Help: "Coincident agent pairs separated",
		}),

		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_websocket_clients",
			Help: "Connected state stream clients",
		}),
		wsMessages: f.NewCounter(prometheus.CounterOpts{
			Name: "boids_websocket_messages_total",
			Help: "State messages sent to stream clients",
		}),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boids_http_request_duration_seconds",
			Help:    "Observer HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boids_http_requests_total",
			Help: "Observer HTTP requests",
		}, []string{"method", "route", "status"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boids_connections_rejected_total",
			Help: "Requests rejected by the rate limiter or client cap",
		}, []string{"reason"}), // "rate_limit", "ws_limit"
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTick records one tick's timing sample.
func (m *Metrics) ObserveTick(s PerfSample) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(s.TickDuration.Seconds())
	for phase, d := range s.Phases {
		m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	}
}

// ObserveFlock records one tick's flock counts.
func (m *Metrics) ObserveFlock(agents, predated, strikes, collisions int) {
	if m == nil {
		return
	}
	m.agents.Set(float64(agents))
	m.predated.Set(float64(predated))
	m.strikes.Add(float64(strikes))
	m.collisions.Add(float64(collisions))
}

// SetPolarization records the latest polarization sample.
func (m *Metrics) SetPolarization(p float64) {
	if m == nil {
		return
	}
	m.polarization.Set(p)
}

// SetWSClients updates the stream client gauge.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

// IncWSMessages counts one message sent to one client.
func (m *Metrics) IncWSMessages() {
	if m == nil {
		return
	}
	m.wsMessages.Inc()
}

// RecordRequest records an observer HTTP request. route must be the
// router pattern, not the raw path.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordRejected counts a rejected request. reason is "rate_limit" or "ws_limit".
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}
