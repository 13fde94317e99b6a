package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/boids/flock"
)

// Phase names for one tick. The first three are reported by the simulation
// itself through flock.PhaseObserver.
const (
	PhaseParallel  = flock.PhaseParallel
	PhaseCommit    = flock.PhaseCommit
	PhasePredator  = flock.PhasePredator
	PhaseTelemetry = "telemetry"
)

// phaseOrder fixes the order of phase attributes in logs.
var phaseOrder = []string{PhaseParallel, PhaseCommit, PhasePredator, PhaseTelemetry}

// PerfSample is one tick's timing plus the load it carried.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration

	Agents     int // Agents updated, predator included
	Collisions int // Coincident pairs nudged apart
}

// PerfCollector keeps a ring of recent tick samples. It satisfies
// flock.PhaseObserver, so the engine marks its own phase boundaries.
type PerfCollector struct {
	clock   func() time.Time
	workers int

	ring  []PerfSample
	next  int
	count int

	cur        PerfSample
	tickStart  time.Time
	phaseStart time.Time
	phase      string

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over the last windowSize
// ticks (60 when windowSize < 1).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		clock: time.Now,
		ring:  make([]PerfSample, windowSize),
	}
}

// SetWorkers records the size of the engine's worker pool.
func (p *PerfCollector) SetWorkers(n int) {
	p.workers = n
}

// StartTick opens a new sample.
func (p *PerfCollector) StartTick() {
	p.tickStart = p.clock()
	p.cur = PerfSample{Phases: make(map[string]time.Duration, len(phaseOrder))}
	p.phase = ""
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.clock()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase != "" {
		p.cur.Phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// RecordWorkload attaches the tick's agent and collision counts to the open
// sample.
func (p *PerfCollector) RecordWorkload(agents, collisions int) {
	p.cur.Agents = agents
	p.cur.Collisions = collisions
}

// EndTick closes the sample and pushes it into the ring.
func (p *PerfCollector) EndTick() {
	now := p.clock()
	p.closePhase(now)
	p.cur.TickDuration = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// LastSample returns the most recently recorded tick, or false before the
// first EndTick.
func (p *PerfCollector) LastSample() (PerfSample, bool) {
	if p.count == 0 {
		return PerfSample{}, false
	}
	return p.ring[(p.next-1+len(p.ring))%len(p.ring)], true
}

// RecordFrame marks a rendered frame; the gap to the previous call is the
// frame duration.
func (p *PerfCollector) RecordFrame() {
	now := p.clock()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats aggregates the samples in the ring.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // Share of the average tick

	TicksPerSecond float64

	// Flock load
	Workers            int
	AgentsPerWorker    float64
	AgentUpdatesPerSec float64
	CollisionsPerTick  float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes the aggregate over the current ring.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		Workers:       p.workers,
		FrameDuration: p.frame,
	}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return s
	}

	var total time.Duration
	var agents, collisions int
	for i, sample := range p.ring[:p.count] {
		total += sample.TickDuration
		if i == 0 || sample.TickDuration < s.MinTickDuration {
			s.MinTickDuration = sample.TickDuration
		}
		s.MaxTickDuration = max(s.MaxTickDuration, sample.TickDuration)
		for phase, d := range sample.Phases {
			s.PhaseAvg[phase] += d
		}
		agents += sample.Agents
		collisions += sample.Collisions
	}

	n := time.Duration(p.count)
	s.AvgTickDuration = total / n
	for phase, sum := range s.PhaseAvg {
		s.PhaseAvg[phase] = sum / n
		if s.AvgTickDuration > 0 {
			s.PhasePct[phase] = float64(s.PhaseAvg[phase]) / float64(s.AvgTickDuration) * 100
		}
	}

	meanAgents := float64(agents) / float64(p.count)
	s.CollisionsPerTick = float64(collisions) / float64(p.count)
	if p.workers > 0 {
		s.AgentsPerWorker = meanAgents / float64(p.workers)
	}
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
		s.AgentUpdatesPerSec = meanAgents * s.TicksPerSecond
	}
	return s
}

// LogStats logs the aggregate at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Int("workers", s.Workers),
		slog.Float64("agents_per_worker", s.AgentsPerWorker),
		slog.Float64("agent_updates_per_sec", s.AgentUpdatesPerSec),
		slog.Float64("collisions_per_tick", s.CollisionsPerTick),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd          int64   `csv:"window_end"`
	AvgTickUS          int64   `csv:"avg_tick_us"`
	MinTickUS          int64   `csv:"min_tick_us"`
	MaxTickUS          int64   `csv:"max_tick_us"`
	TicksPerSec        float64 `csv:"ticks_per_sec"`
	AgentUpdatesPerSec float64 `csv:"agent_updates_per_sec"`
	AgentsPerWorker    float64 `csv:"agents_per_worker"`
	CollisionsPerTick  float64 `csv:"collisions_per_tick"`
	FPS                float64 `csv:"fps"`
	ParallelPct        float64 `csv:"parallel_pct"`
	CommitPct          float64 `csv:"commit_pct"`
	PredatorPct        float64 `csv:"predator_pct"`
	TelemetryPct       float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the aggregate for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:          windowEnd,
		AvgTickUS:          s.AvgTickDuration.Microseconds(),
		MinTickUS:          s.MinTickDuration.Microseconds(),
		MaxTickUS:          s.MaxTickDuration.Microseconds(),
		TicksPerSec:        s.TicksPerSecond,
		AgentUpdatesPerSec: s.AgentUpdatesPerSec,
		AgentsPerWorker:    s.AgentsPerWorker,
		CollisionsPerTick:  s.CollisionsPerTick,
		FPS:                s.FPS,
		ParallelPct:        s.PhasePct[PhaseParallel],
		CommitPct:          s.PhasePct[PhaseCommit],
		PredatorPct:        s.PhasePct[PhasePredator],
		TelemetryPct:       s.PhasePct[PhaseTelemetry],
	}
}
