package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/flock"
)

// stepClock is a manual clock; each advance moves it forward by d.
type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time { return c.t }

func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newSteppedCollector(window int) (*PerfCollector, *stepClock) {
	clk := &stepClock{t: time.Unix(1000, 0)}
	pc := NewPerfCollector(window)
	pc.clock = clk.now
	return pc, clk
}

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc, clk := newSteppedCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseParallel)
		clk.advance(300 * time.Microsecond)
		pc.StartPhase(PhaseCommit)
		clk.advance(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration != 400*time.Microsecond {
		t.Errorf("AvgTickDuration = %v, want 400µs", stats.AvgTickDuration)
	}
	if stats.PhaseAvg[PhaseParallel] != 300*time.Microsecond {
		t.Errorf("parallel avg = %v, want 300µs", stats.PhaseAvg[PhaseParallel])
	}
	if stats.PhaseAvg[PhaseCommit] != 100*time.Microsecond {
		t.Errorf("commit avg = %v, want 100µs", stats.PhaseAvg[PhaseCommit])
	}
	if math.Abs(stats.TicksPerSecond-2500) > 1e-9 {
		t.Errorf("TicksPerSecond = %v, want 2500", stats.TicksPerSecond)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc, clk := newSteppedCollector(5)

	// Five slow ticks are pushed out by five fast ones
	for i := 0; i < 10; i++ {
		d := 10 * time.Millisecond
		if i >= 5 {
			d = time.Millisecond
		}
		pc.StartTick()
		pc.StartPhase(PhaseCommit)
		clk.advance(d)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration != time.Millisecond {
		t.Errorf("AvgTickDuration = %v, want 1ms once the window has rolled", stats.AvgTickDuration)
	}
	if stats.MaxTickDuration != time.Millisecond {
		t.Errorf("MaxTickDuration = %v, want 1ms", stats.MaxTickDuration)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc, clk := newSteppedCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		clk.advance(time.Millisecond)
		pc.StartPhase("slow")
		clk.advance(19 * time.Millisecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	tests := []struct {
		phase string
		want  float64
	}{
		{"fast", 5},
		{"slow", 95},
	}
	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			if got := stats.PhasePct[tt.phase]; math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PhasePct[%s] = %v, want %v", tt.phase, got, tt.want)
			}
		})
	}
}

func TestPerfCollector_Workload(t *testing.T) {
	pc, clk := newSteppedCollector(4)
	pc.SetWorkers(4)

	for i := 0; i < 4; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseParallel)
		clk.advance(2 * time.Millisecond)
		pc.RecordWorkload(1001, i%2)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.Workers != 4 {
		t.Errorf("Workers = %d, want 4", stats.Workers)
	}
	if math.Abs(stats.AgentsPerWorker-250.25) > 1e-9 {
		t.Errorf("AgentsPerWorker = %v, want 250.25", stats.AgentsPerWorker)
	}
	// 1001 agents at 500 ticks/s
	if math.Abs(stats.AgentUpdatesPerSec-500500) > 1e-6 {
		t.Errorf("AgentUpdatesPerSec = %v, want 500500", stats.AgentUpdatesPerSec)
	}
	if math.Abs(stats.CollisionsPerTick-0.5) > 1e-9 {
		t.Errorf("CollisionsPerTick = %v, want 0.5", stats.CollisionsPerTick)
	}

	row := stats.ToCSV(100)
	if row.AgentsPerWorker != stats.AgentsPerWorker || row.ParallelPct != 100 {
		t.Errorf("ToCSV = %+v", row)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()
	if stats.AvgTickDuration != 0 || stats.AgentUpdatesPerSec != 0 {
		t.Errorf("expected zero stats for an empty collector, got %+v", stats)
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc, clk := newSteppedCollector(10)

	pc.RecordFrame()
	clk.advance(20 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration != 20*time.Millisecond {
		t.Errorf("FrameDuration = %v, want 20ms", stats.FrameDuration)
	}
	if math.Abs(stats.FPS-50) > 1e-9 {
		t.Errorf("FPS = %v, want 50", stats.FPS)
	}
}

func TestPerfCollector_LastSample(t *testing.T) {
	pc := NewPerfCollector(3)
	if _, ok := pc.LastSample(); ok {
		t.Fatal("expected no sample before the first tick")
	}

	for i := 0; i < 4; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseTelemetry)
		pc.RecordWorkload(i, 0)
		pc.EndTick()
	}

	s, ok := pc.LastSample()
	if !ok {
		t.Fatal("expected a sample after EndTick")
	}
	if _, tracked := s.Phases[PhaseTelemetry]; !tracked {
		t.Error("expected telemetry phase in the last sample")
	}
	if s.Agents != 3 {
		t.Errorf("last sample Agents = %d, want 3", s.Agents)
	}
}

func TestPerfCollector_ObservesSimulation(t *testing.T) {
	cfg := config.Default()
	cfg.World.Width, cfg.World.Height = 400, 400
	cfg.Population.Size = 100
	cfg.ComputeDerived()

	sim, err := flock.New(cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	pc := NewPerfCollector(10)
	sim.SetPhaseObserver(pc)

	for i := 0; i < 3; i++ {
		pc.StartTick()
		sim.Tick(flock.DefaultParams())
		pc.EndTick()
	}

	stats := pc.Stats()
	for _, phase := range []string{PhaseParallel, PhaseCommit, PhasePredator} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("expected %s phase to be tracked", phase)
		}
	}
}
