package systems

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
)

// FlockParams holds the cached radii and cell span for the force accumulator.
type FlockParams struct {
	NeighborRadSq  float64
	ProtectedRadSq float64
	Cells          int     // Cell radius covering the neighbor radius
	CollisionNudge float64 // Magnitude of the push applied to coincident agents
}

// FlockParamsFromConfig extracts FlockParams from the loaded config.
func FlockParamsFromConfig(cfg *config.Config) FlockParams {
	return FlockParams{
		NeighborRadSq:  cfg.Derived.NeighborRadSq,
		ProtectedRadSq: cfg.Derived.ProtectedRadSq,
		Cells:          cfg.Derived.NeighborCells,
		CollisionNudge: cfg.Flock.CollisionNudge,
	}
}

// Scratch holds per-worker buffers reused across agents.
type Scratch struct {
	Neighbors  []components.Handle
	Rng        *rand.Rand
	Collisions int // Coincident pairs seen since the last reset
}

// NewScratch creates a scratch with its own random stream.
func NewScratch(seed1, seed2 uint64) *Scratch {
	return &Scratch{
		Neighbors: make([]components.Handle, 0, 64),
		Rng:       rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// ComputeFlockForces gathers alignment, cohesion and separation sums for the
// agent at self from the cells around it.
//
// Neighbors closer than the protected radius repel with strength 1/d²;
// neighbors between the protected and neighbor radius contribute to the
// alignment and cohesion averages. A neighbor at exactly the same position
// has no direction to repel along: the agent's pending velocity gets a random
// push, everything accumulated so far is dropped and the scan continues.
//
// Reads committed state of other agents only. The single write is the push
// on agents[self].PendingVelocity.
func ComputeFlockForces(
	self components.Handle,
	agents []components.Agent,
	grid *SpatialHash,
	torus Torus,
	p FlockParams,
	scratch *Scratch,
) components.FlockForces {
	var forces components.FlockForces

	a := &agents[self]
	pos := a.Position

	cx, cy := grid.Cell(pos)
	scratch.Neighbors = grid.Query(scratch.Neighbors[:0], cx, cy, p.Cells)

	for _, nh := range scratch.Neighbors {
		if nh == self {
			continue
		}
		other := &agents[nh]

		distSq := torus.DistanceSquared(pos, other.Position)
		if distSq == 0 {
			scratch.Collisions++
			a.PendingVelocity = r2.Add(a.PendingVelocity, r2.Scale(p.CollisionNudge, RandomUnit(scratch.Rng)))
			forces = components.FlockForces{}
			continue
		}

		if distSq < p.ProtectedRadSq {
			away := torus.WrapDisplacement(pos, other.Position)
			forces.Separation = r2.Add(forces.Separation, r2.Scale(1/distSq, away))
			forces.NearNeighborCount++
		} else if distSq < p.NeighborRadSq {
			forces.Alignment = r2.Add(forces.Alignment, other.Velocity)
			offset := torus.WrapDisplacement(other.Position, pos)
			forces.Cohesion = r2.Add(forces.Cohesion, r2.Add(pos, offset))
			forces.NeighborCount++
		}
	}

	if forces.NeighborCount > 0 {
		inv := 1 / float64(forces.NeighborCount)
		forces.Alignment = r2.Scale(inv, forces.Alignment)
		forces.Cohesion = r2.Scale(inv, forces.Cohesion)
	}

	return forces
}
