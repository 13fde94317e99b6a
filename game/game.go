// Package game drives the flock simulation from the window loop or a
// headless loop and wires it to telemetry, the viewer and the observer
// server.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/boids/camera"
	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/flock"
	"github.com/pthm-cable/boids/frame"
	"github.com/pthm-cable/boids/renderer"
	"github.com/pthm-cable/boids/server"
	"github.com/pthm-cable/boids/telemetry"
	"github.com/pthm-cable/boids/ui"
)

// Title is shown in the window bar and the HUD.
const Title = "Boids with Predator Simulation"

// Options configures a Game.
type Options struct {
	Config    *config.Config // nil = config.Cfg()
	Seed      uint64
	Headless  bool
	LogStats  bool
	OutputDir string // CSV logs, config copy and bookmark snapshots
	FramesDir string // PNG frame dumps

	// Publisher receives an observer frame every snapshot interval. May be nil.
	Publisher *server.Publisher
	Metrics   *telemetry.Metrics

	// StatsCallback is invoked with every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the simulation and everything that observes it.
type Game struct {
	cfg  *config.Config
	sim  *flock.Simulation
	seed uint64

	params   flock.TickParams
	paused   bool
	selected components.Handle

	// Reused between ticks
	views    []components.AgentView
	nearest  []components.Handle
	distance []float64

	// Telemetry
	perfCollector    *telemetry.PerfCollector
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	metrics          *telemetry.Metrics
	recorder         *frame.Recorder
	publisher        *server.Publisher
	lastWindow       *telemetry.WindowStats
	logStats         bool
	statsCallback    func(telemetry.WindowStats)

	// Viewer, nil when headless
	cam           *camera.Camera
	flockRenderer *renderer.FlockRenderer
	overlays      *ui.OverlayRegistry
	hud           *ui.HUD
	controls      *ui.ControlsPanel
	perfPanel     *ui.PerfPanel
	frameTime     time.Duration
	drawn         int
}

// NewGameWithOptions builds the simulation and its observers.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	sim, err := flock.New(cfg, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}

	g := &Game{
		cfg:              cfg,
		sim:              sim,
		seed:             opts.Seed,
		params:           flock.ParamsFromConfig(cfg),
		selected:         components.NoHandle,
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.FallbackDT),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		metrics:          opts.Metrics,
		publisher:        opts.Publisher,
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
	}
	sim.SetPhaseObserver(g.perfCollector)
	g.perfCollector.SetWorkers(sim.Workers())

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			sim.Close()
			return nil, err
		}
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
		g.outputManager = om
	}

	g.recorder, err = frame.NewRecorder(opts.FramesDir, cfg.Telemetry.FrameInterval, cfg.Server.FrameWidth)
	if err != nil {
		g.Unload()
		return nil, err
	}

	if !opts.Headless {
		g.cam = camera.New(float64(cfg.Screen.Width), float64(cfg.Screen.Height), sim.Torus())
		g.flockRenderer = &renderer.FlockRenderer{}
		g.overlays = ui.NewOverlayRegistry()
		g.hud = ui.NewHUD()
		g.controls = ui.NewControlsPanel(20, 250)
		g.perfPanel = ui.NewPerfPanel(int32(cfg.Screen.Width)-320, 20)
	}

	g.publish()

	slog.Info("simulation created",
		"seed", opts.Seed,
		"agents", sim.Len()-1,
		"world_w", sim.Width(),
		"world_h", sim.Height(),
		"workers", sim.Workers(),
		"headless", opts.Headless,
	)
	return g, nil
}

// Update handles input and advances one tick using the measured frame time.
func (g *Game) Update(frameTime float64) {
	g.handleInput()
	g.perfCollector.RecordFrame()
	g.frameTime = time.Duration(frameTime * float64(time.Second))
	g.step(frameTime)
}

// UpdateHeadless advances one tick at the fallback frame time.
func (g *Game) UpdateHeadless() {
	g.step(0)
}

// step runs one simulation tick and the telemetry that follows it.
func (g *Game) step(frameTime float64) {
	if g.paused {
		return
	}

	p := g.params
	p.FrameTime = frameTime

	g.perfCollector.StartTick()
	g.sim.Tick(p)

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.recordTick(frameTime)
	g.perfCollector.EndTick()

	if sample, ok := g.perfCollector.LastSample(); ok {
		g.metrics.ObserveTick(sample)
	}
}

// Tick returns the number of ticks simulated so far.
func (g *Game) Tick() int64 {
	return g.sim.TickCount()
}

// Sim exposes the simulation for read-only queries.
func (g *Game) Sim() *flock.Simulation {
	return g.sim
}

// Params returns the current operator weights.
func (g *Game) Params() flock.TickParams {
	return g.params
}

// SetParams replaces the operator weights.
func (g *Game) SetParams(p flock.TickParams) {
	g.params.AlignmentWeight = ui.ClampWeight(p.AlignmentWeight)
	g.params.CohesionWeight = ui.ClampWeight(p.CohesionWeight)
	g.params.SeparationWeight = ui.ClampWeight(p.SeparationWeight)
}

// Paused reports whether ticking is suspended.
func (g *Game) Paused() bool {
	return g.paused
}

// TogglePause flips the pause state and republishes so observers see it.
func (g *Game) TogglePause() {
	g.paused = !g.paused
	slog.Info("pause toggled", "paused", g.paused, "tick", g.Tick())
	g.publish()
}

// Unload releases workers and flushes output files.
func (g *Game) Unload() {
	g.sim.Close()
	if g.outputManager != nil {
		if err := g.outputManager.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}
}
