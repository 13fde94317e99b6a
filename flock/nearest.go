package flock

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
)

// FindNearest returns the agent closest to p on the torus, the predator
// included. Points just outside the domain are wrapped first. It reports false
// only when the arena is empty.
func (s *Simulation) FindNearest(p r2.Vec) (components.Handle, bool) {
	return s.nearest(s.torus.WrapPosition(p), components.NoHandle)
}

// NearestNeighbor returns the agent closest to h, excluding h itself.
func (s *Simulation) NearestNeighbor(h components.Handle) (components.Handle, bool) {
	return s.nearest(s.agents[h].Position, h)
}

// nearest searches outward from p's cell. It starts with the configured
// block, then adds rings one at a time. Every agent outside the block of
// radius k lies at least k cells away, so the search stops once that bound
// reaches the best distance found. A ring that would wrap onto itself
// triggers a linear scan instead.
func (s *Simulation) nearest(p r2.Vec, exclude components.Handle) (components.Handle, bool) {
	if len(s.agents) == 0 {
		return components.NoHandle, false
	}

	k := max(s.cfg.Grid.NearestRadius, 0)
	if !s.grid.RingFits(k) {
		return s.nearestScan(p, exclude)
	}

	best := components.NoHandle
	bestSq := math.Inf(1)
	consider := func(hs []components.Handle) {
		for _, h := range hs {
			if h == exclude {
				continue
			}
			if d := s.torus.DistanceSquared(p, s.agents[h].Position); d < bestSq {
				best, bestSq = h, d
			}
		}
	}

	cx, cy := s.grid.Cell(p)
	buf := s.serial.Neighbors[:0]
	buf = s.grid.Query(buf, cx, cy, k)
	consider(buf)

	cell := s.grid.CellSize()
	for {
		if best != components.NoHandle {
			bound := float64(k) * cell
			if bestSq <= bound*bound {
				break
			}
		}
		k++
		if !s.grid.RingFits(k) {
			s.serial.Neighbors = buf
			return s.nearestScan(p, exclude)
		}
		buf = s.grid.QueryRing(buf[:0], cx, cy, k)
		consider(buf)
	}

	s.serial.Neighbors = buf
	return best, best != components.NoHandle
}

// nearestScan is the linear fallback.
func (s *Simulation) nearestScan(p r2.Vec, exclude components.Handle) (components.Handle, bool) {
	best := components.NoHandle
	bestSq := math.Inf(1)
	for i := range s.agents {
		h := components.Handle(i)
		if h == exclude {
			continue
		}
		if d := s.torus.DistanceSquared(p, s.agents[i].Position); d < bestSq {
			best, bestSq = h, d
		}
	}
	return best, best != components.NoHandle
}
