package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/flock"
	"github.com/pthm-cable/boids/server"
	"github.com/pthm-cable/boids/telemetry"
)

func testConfig(n int) *config.Config {
	cfg := config.Default()
	cfg.World.Width = 400
	cfg.World.Height = 300
	cfg.Population.Size = n
	cfg.Parallel.Workers = 2
	cfg.Telemetry.StatsWindow = 10
	cfg.Telemetry.SnapshotInterval = 5
	cfg.Telemetry.FrameInterval = 10
	cfg.Server.FrameWidth = 64
	cfg.ComputeDerived()
	return cfg
}

func newTestGame(t *testing.T, opts Options) *Game {
	t.Helper()
	opts.Headless = true
	g, err := NewGameWithOptions(opts)
	if err != nil {
		t.Fatalf("NewGameWithOptions: %v", err)
	}
	return g
}

func TestHeadlessRunWritesOutput(t *testing.T) {
	dir := t.TempDir()
	var windows []telemetry.WindowStats

	g := newTestGame(t, Options{
		Config:        testConfig(100),
		Seed:          7,
		OutputDir:     dir,
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	for i := 0; i < 30; i++ {
		g.UpdateHeadless()
	}
	g.Unload()

	if g.Tick() != 30 {
		t.Errorf("Tick() = %d, want 30", g.Tick())
	}
	if len(windows) != 3 {
		t.Fatalf("got %d stats windows, want 3", len(windows))
	}
	if windows[2].WindowEndTick != 30 || windows[2].Agents != 100 {
		t.Errorf("last window = end %d agents %d, want end 30 agents 100",
			windows[2].WindowEndTick, windows[2].Agents)
	}

	for _, name := range []string{"stats.csv", "perf.csv"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if lines := strings.Count(string(data), "\n"); lines != 4 {
			t.Errorf("%s has %d lines, want header + 3 rows", name, lines)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml not written: %v", err)
	}
}

func TestPublishesFrames(t *testing.T) {
	pub := &server.Publisher{}
	g := newTestGame(t, Options{Config: testConfig(50), Seed: 1, Publisher: pub})
	defer g.Unload()

	f := pub.Latest()
	if f == nil {
		t.Fatal("no frame published at construction")
	}
	if f.Tick != 0 || len(f.Agents) != 51 || f.Width != 400 || f.Height != 300 {
		t.Errorf("initial frame = tick %d agents %d size %vx%v", f.Tick, len(f.Agents), f.Width, f.Height)
	}

	for i := 0; i < 4; i++ {
		g.UpdateHeadless()
	}
	if got := pub.Latest().Tick; got != 0 {
		t.Errorf("published tick %d before the snapshot interval", got)
	}
	g.UpdateHeadless()
	if got := pub.Latest().Tick; got != 5 {
		t.Errorf("published tick = %d, want 5", got)
	}

	// The earlier frame is never mutated
	if f.Tick != 0 {
		t.Error("published frame changed after later ticks")
	}
}

func TestPause(t *testing.T) {
	pub := &server.Publisher{}
	g := newTestGame(t, Options{Config: testConfig(20), Seed: 3, Publisher: pub})
	defer g.Unload()

	g.UpdateHeadless()
	g.TogglePause()
	if !g.Paused() || !pub.Latest().Paused {
		t.Fatal("pause not reflected in the published frame")
	}

	before := g.Sim().Agent(0).Position
	g.UpdateHeadless()
	g.UpdateHeadless()
	if g.Tick() != 1 {
		t.Errorf("Tick() = %d while paused, want 1", g.Tick())
	}
	if g.Sim().Agent(0).Position != before {
		t.Error("agent moved while paused")
	}

	g.TogglePause()
	g.UpdateHeadless()
	if g.Tick() != 2 {
		t.Errorf("Tick() = %d after resume, want 2", g.Tick())
	}
}

func TestToggleSelection(t *testing.T) {
	cfg := testConfig(3)
	g := newTestGame(t, Options{Config: cfg, Seed: 5})
	defer g.Unload()

	sim := g.Sim()
	places := []r2.Vec{{X: 100, Y: 100}, {X: 300, Y: 200}, {X: 50, Y: 250}, {X: 200, Y: 50}}
	for i, p := range places {
		if err := sim.Place(components.Handle(i), p, r2.Vec{X: 1}); err != nil {
			t.Fatalf("Place(%d): %v", i, err)
		}
	}

	tests := []struct {
		name   string
		click  r2.Vec
		want   components.Handle
		reach  int
		radius float64
	}{
		{"boid", r2.Vec{X: 298, Y: 202}, 1, cfg.Derived.NeighborCells, cfg.Flock.NeighborRadius},
		{"across the seam", r2.Vec{X: 395, Y: 295}, 2, cfg.Derived.NeighborCells, cfg.Flock.NeighborRadius},
		{"predator", r2.Vec{X: 205, Y: 45}, 3, cfg.Derived.PredatorCells, cfg.Predator.VisualRadius},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.ToggleSelection(tt.click); got != tt.want {
				t.Fatalf("ToggleSelection = %d, want %d", got, tt.want)
			}
			sel, ok := g.selection()
			if !ok {
				t.Fatal("selection() reported nothing selected")
			}
			if sel.Reach != tt.reach || sel.Radius != tt.radius {
				t.Errorf("reach %d radius %v, want %d %v", sel.Reach, sel.Radius, tt.reach, tt.radius)
			}
			if g.selectionLabel() == "" {
				t.Error("empty selection label")
			}

			// A second click clears regardless of position
			if got := g.ToggleSelection(tt.click); got != components.NoHandle {
				t.Errorf("second toggle = %d, want NoHandle", got)
			}
			if _, ok := g.selection(); ok {
				t.Error("selection still present after clearing")
			}
		})
	}
}

func TestSetParamsClamps(t *testing.T) {
	g := newTestGame(t, Options{Config: testConfig(10), Seed: 2})
	defer g.Unload()

	g.SetParams(flock.TickParams{AlignmentWeight: -3, CohesionWeight: 4, SeparationWeight: 25})
	p := g.Params()
	if p.AlignmentWeight != 0 || p.CohesionWeight != 4 || p.SeparationWeight != 10 {
		t.Errorf("Params() = %+v, want weights 0/4/10", p)
	}
}

func TestFramesDir(t *testing.T) {
	dir := t.TempDir()
	g := newTestGame(t, Options{Config: testConfig(30), Seed: 9, FramesDir: dir})
	for i := 0; i < 20; i++ {
		g.UpdateHeadless()
	}
	g.Unload()

	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("wrote %d frames, want 2: %v", len(matches), matches)
	}
}
