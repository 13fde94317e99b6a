// Package components defines the per-agent data shared by the simulation systems.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Handle addresses an agent in the arena. Handles are stable for the lifetime
// of a simulation and are never reused.
type Handle int32

// NoHandle is returned by lookups that found nothing.
const NoHandle Handle = -1

// Kind distinguishes agent roles.
type Kind uint8

const (
	KindBoid     Kind = iota // Regular flocking agent
	KindPredator             // The single predator
)

// String returns the role name.
func (k Kind) String() string {
	if k == KindPredator {
		return "predator"
	}
	return "boid"
}

// Agent is one simulated entity.
//
// Pending fields are scratch written during the parallel phase and copied into
// Position/Velocity at commit. Nothing outside the tick should read them.
type Agent struct {
	ID       uint32
	Position r2.Vec
	Velocity r2.Vec

	PendingVelocity r2.Vec
	PendingPosition r2.Vec

	// Diagnostics from the last force computation (-1 before the first tick)
	NeighborCount     int32
	NearNeighborCount int32

	IsPredator bool
	Predated   bool // Inside the predator's strike radius this tick
}

// Kind returns the agent's role.
func (a *Agent) Kind() Kind {
	if a.IsPredator {
		return KindPredator
	}
	return KindBoid
}

// FlockForces holds the neighborhood sums gathered for one agent in one tick.
// Alignment and Cohesion are averaged by NeighborCount; Separation is a raw sum.
type FlockForces struct {
	Alignment  r2.Vec
	Cohesion   r2.Vec
	Separation r2.Vec

	NearNeighborCount int32
	NeighborCount     int32
}

// AgentView is the read-only projection handed to renderers and observers.
type AgentView struct {
	Handle            Handle  `json:"h" csv:"handle"`
	ID                uint32  `json:"id" csv:"id"`
	X                 float64 `json:"x" csv:"x"`
	Y                 float64 `json:"y" csv:"y"`
	VX                float64 `json:"vx" csv:"vx"`
	VY                float64 `json:"vy" csv:"vy"`
	NeighborCount     int32   `json:"n" csv:"neighbors"`
	NearNeighborCount int32   `json:"nn" csv:"near_neighbors"`
	IsPredator        bool    `json:"p,omitempty" csv:"predator"`
	Predated          bool    `json:"d,omitempty" csv:"predated"`
}

// View projects the agent at handle h.
func (a *Agent) View(h Handle) AgentView {
	return AgentView{
		Handle:            h,
		ID:                a.ID,
		X:                 a.Position.X,
		Y:                 a.Position.Y,
		VX:                a.Velocity.X,
		VY:                a.Velocity.Y,
		NeighborCount:     a.NeighborCount,
		NearNeighborCount: a.NearNeighborCount,
		IsPredator:        a.IsPredator,
		Predated:          a.Predated,
	}
}
