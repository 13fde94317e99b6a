package flock

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/systems"
)

// Len returns the number of agents including the predator.
func (s *Simulation) Len() int { return len(s.agents) }

// Agent returns a copy of the agent at h.
func (s *Simulation) Agent(h components.Handle) components.Agent { return s.agents[h] }

// Predator returns the predator's handle.
func (s *Simulation) Predator() components.Handle { return s.predator }

// Width returns the domain width.
func (s *Simulation) Width() float64 { return s.torus.W }

// Height returns the domain height.
func (s *Simulation) Height() float64 { return s.torus.H }

// Torus returns the domain geometry.
func (s *Simulation) Torus() systems.Torus { return s.torus }

// TickCount returns the number of completed ticks since Initialize.
func (s *Simulation) TickCount() int64 { return s.tick }

// Config returns the configuration the simulation was built from.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Workers returns the size of the worker pool.
func (s *Simulation) Workers() int { return s.parallel.numWorkers }

// GridDims returns the index dimensions in cells and the cell size.
func (s *Simulation) GridDims() (cols, rows int, cellSize float64) {
	return s.grid.Cols(), s.grid.Rows(), s.grid.CellSize()
}

// CellOf returns the grid cell containing p.
func (s *Simulation) CellOf(p r2.Vec) (cx, cy int) { return s.grid.Cell(p) }

// CellOccupancy returns the number of agents indexed in cell (cx, cy).
func (s *Simulation) CellOccupancy(cx, cy int) int { return s.grid.CellLen(cx, cy) }

// LastCollisions returns the coincident pairs resolved during the last tick.
func (s *Simulation) LastCollisions() int { return s.lastCollisions }

// LastPredatorPass returns the predator phase result of the last tick.
func (s *Simulation) LastPredatorPass() systems.PredatorResult { return s.lastPredator }

// Views appends a snapshot of every agent to dst and returns it.
func (s *Simulation) Views(dst []components.AgentView) []components.AgentView {
	for i := range s.agents {
		dst = append(dst, s.agents[i].View(components.Handle(i)))
	}
	return dst
}

// Place overwrites an agent's committed position and velocity and rebuilds
// the index. Positions are wrapped into the domain.
func (s *Simulation) Place(h components.Handle, pos, vel r2.Vec) error {
	if h < 0 || int(h) >= len(s.agents) {
		return fmt.Errorf("place: handle %d out of range [0, %d)", h, len(s.agents))
	}
	a := &s.agents[h]
	a.Position = s.torus.WrapPosition(pos)
	a.Velocity = vel
	s.rebuildIndex()
	return nil
}
