// Package flock runs the boid simulation: an arena of agents, a toroidal
// spatial hash rebuilt every tick, and a three-phase update.
//
// Each tick computes every regular agent's next velocity and position in
// parallel from committed state only, commits them serially, rebuilds the
// index and finally steers the predator from the fresh index.
package flock

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/systems"
)

// Phase names reported to a PhaseObserver.
const (
	PhaseParallel = "parallel"
	PhaseCommit   = "commit"
	PhasePredator = "predator"
)

// PhaseObserver is notified at the start of each tick phase.
type PhaseObserver interface {
	StartPhase(name string)
}

// Simulation owns the agent arena and the spatial index.
//
// Not safe for concurrent use: Tick, Initialize and the query methods must be
// called from one goroutine. The read-only view is valid between ticks.
type Simulation struct {
	cfg *config.Config

	torus    systems.Torus
	grid     *systems.SpatialHash
	agents   []components.Agent
	predator components.Handle

	flockParams systems.FlockParams
	predParams  systems.PredatorParams

	seed   uint64
	rng    *rand.Rand
	nextID uint32
	tick   int64

	parallel *parallelState
	serial   *systems.Scratch // predator phase and nearest-agent queries
	observer PhaseObserver

	lastCollisions int
	lastPredator   systems.PredatorResult
}

// New creates a simulation sized from cfg and seeds it.
func New(cfg *config.Config, seed uint64) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:         cfg,
		flockParams: systems.FlockParamsFromConfig(cfg),
		predParams:  systems.PredatorParamsFromConfig(cfg),
		seed:        seed,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		serial:      systems.NewScratch(seed, math.MaxUint64),
	}

	if err := s.Initialize(cfg.Derived.WorldW, cfg.Derived.WorldH, cfg.Population.Size); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize (re)allocates the arena for a width x height domain with
// population regular agents plus the predator, seeds them and builds the index.
// Positions are uniform over the domain; headings are uniform and speeds are
// drawn from the configured normal distribution. The predator starts at the
// center.
func (s *Simulation) Initialize(width, height, population int) error {
	if err := config.ValidateDomain(width, height, s.cfg.Grid.CellSize); err != nil {
		return err
	}
	if population < 0 {
		return fmt.Errorf("%w: population must not be negative, got %d", config.ErrInvalid, population)
	}

	if s.parallel != nil {
		s.parallel.stopWorkers()
	}

	s.torus = systems.NewTorus(float64(width), float64(height))
	s.grid = systems.NewSpatialHash(width, height, s.cfg.Grid.CellSize, s.cfg.Grid.HashSize, s.cfg.Grid.InitialCellCap)
	s.agents = make([]components.Agent, population+1)
	s.predator = components.Handle(population)
	s.tick = 0

	speed := distuv.Normal{
		Mu:    s.cfg.Population.InitSpeedMean,
		Sigma: s.cfg.Population.InitSpeedStd,
		Src:   s.rng,
	}

	w, h := float64(width), float64(height)
	for i := 0; i < population; i++ {
		angle := s.rng.Float64() * 2 * math.Pi
		s.agents[i] = components.Agent{
			ID:                s.allocID(),
			Position:          r2.Vec{X: s.rng.Float64() * w, Y: s.rng.Float64() * h},
			Velocity:          r2.Scale(speed.Rand(), r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}),
			NeighborCount:     -1,
			NearNeighborCount: -1,
		}
	}

	s.agents[s.predator] = components.Agent{
		ID:                s.allocID(),
		Position:          r2.Vec{X: w / 2, Y: h / 2},
		Velocity:          systems.ClampSpeed(r2.Vec{X: s.cfg.Speed.Predator, Y: s.cfg.Speed.Predator}, s.cfg.Speed.Min, s.cfg.Speed.Predator),
		NeighborCount:     -1,
		NearNeighborCount: -1,
		IsPredator:        true,
	}

	s.rebuildIndex()
	s.parallel = newParallelState(s.cfg.Parallel.Workers, s.seed)

	slog.Debug("simulation initialized",
		"width", width,
		"height", height,
		"population", population,
		"cols", s.grid.Cols(),
		"rows", s.grid.Rows(),
		"workers", s.parallel.numWorkers,
	)
	return nil
}

func (s *Simulation) allocID() uint32 {
	id := s.nextID
	s.nextID++
	return id
}

// SetPhaseObserver installs an observer notified at the start of each phase.
func (s *Simulation) SetPhaseObserver(o PhaseObserver) {
	s.observer = o
}

func (s *Simulation) startPhase(name string) {
	if s.observer != nil {
		s.observer.StartPhase(name)
	}
}

// Tick advances the simulation by one frame. A paused tick changes nothing.
func (s *Simulation) Tick(p TickParams) {
	if p.Paused {
		return
	}

	dt := p.FrameTime
	if dt == 0 {
		dt = s.cfg.Physics.FallbackDT
	}
	step := dt * s.cfg.Physics.ReferenceFPS

	// Phase 1: every regular agent reads committed state and writes its own
	// pending fields. Returns only after all workers finish.
	s.startPhase(PhaseParallel)
	s.lastCollisions = s.runParallel(p, step)
	if s.lastCollisions > 0 {
		slog.Debug("coincident agents separated", "tick", s.tick, "pairs", s.lastCollisions)
	}

	// Phase 2: serial commit and index rebuild
	s.startPhase(PhaseCommit)
	s.commit()

	// Phase 3: predator steers from the fresh index
	s.startPhase(PhasePredator)
	s.updatePredator(step)

	s.tick++
}

// updateAgent computes the pending state of one regular agent.
func (s *Simulation) updateAgent(h components.Handle, p TickParams, step float64, scratch *systems.Scratch) {
	a := &s.agents[h]
	a.PendingVelocity = a.Velocity

	forces := systems.ComputeFlockForces(h, s.agents, s.grid, s.torus, s.flockParams, scratch)
	a.NeighborCount = forces.NeighborCount
	a.NearNeighborCount = forces.NearNeighborCount

	pv := a.PendingVelocity
	if forces.NeighborCount > 0 {
		align := r2.Sub(forces.Alignment, a.Velocity)
		pv = r2.Add(pv, r2.Scale(s.cfg.Flock.MatchFactor*p.AlignmentWeight, align))

		cohesion := r2.Sub(forces.Cohesion, a.Position)
		pv = r2.Add(pv, r2.Scale(s.cfg.Flock.CenterFactor*p.CohesionWeight, cohesion))
	}
	pv = r2.Add(pv, r2.Scale(s.cfg.Flock.AvoidFactor*p.SeparationWeight, forces.Separation))

	push, struck := systems.PredatorAvoidance(
		s.torus, a.Position, s.agents[s.predator].Position,
		s.predParams.RadSq, s.predParams.AvoidFactor,
	)
	a.Predated = struck
	pv = r2.Add(pv, push)

	pv = systems.ClampSpeed(pv, s.cfg.Speed.Min, s.cfg.Speed.Max)
	a.PendingVelocity = pv
	a.PendingPosition = s.torus.WrapPosition(r2.Add(a.Position, r2.Scale(step, pv)))
}

// commit publishes pending state and rebuilds the index.
func (s *Simulation) commit() {
	for i := range s.agents {
		a := &s.agents[i]
		if a.IsPredator {
			continue
		}
		a.Velocity = a.PendingVelocity
		a.Position = a.PendingPosition
	}
	s.rebuildIndex()
}

func (s *Simulation) rebuildIndex() {
	s.grid.Clear()
	for i := range s.agents {
		s.grid.Insert(components.Handle(i), s.agents[i].Position)
	}
}

// updatePredator steers, clamps and moves the predator.
func (s *Simulation) updatePredator(step float64) {
	res := systems.PredatorAdjustment(s.predator, s.agents, s.grid, s.torus, s.predParams, s.serial)
	s.lastPredator = res

	pred := &s.agents[s.predator]
	pred.NeighborCount = int32(res.Seen)
	pred.NearNeighborCount = int32(res.Struck)
	pred.Velocity = systems.ClampSpeed(r2.Add(pred.Velocity, res.Adjustment), s.cfg.Speed.Min, s.cfg.Speed.Predator)
	pred.Position = s.torus.WrapPosition(r2.Add(pred.Position, r2.Scale(step, pred.Velocity)))
}

// Close stops the worker pool. The simulation must not be ticked afterwards.
func (s *Simulation) Close() {
	if s.parallel != nil {
		s.parallel.stopWorkers()
	}
}
