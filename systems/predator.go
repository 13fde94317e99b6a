package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
)

// PredatorParams holds the cached predator constants.
type PredatorParams struct {
	RadSq       float64 // Strike radius²
	VisualRadSq float64 // Vision radius²
	Cells       int     // Cell radius covering the vision radius
	AvoidFactor float64
	MinSpeed    float64
	MaxSpeed    float64 // Bound for struck agents after the push
}

// PredatorParamsFromConfig extracts PredatorParams from the loaded config.
func PredatorParamsFromConfig(cfg *config.Config) PredatorParams {
	return PredatorParams{
		RadSq:       cfg.Derived.PredatorRadSq,
		VisualRadSq: cfg.Derived.VisualRadSq,
		Cells:       cfg.Derived.PredatorCells,
		AvoidFactor: cfg.Predator.AvoidFactor,
		MinSpeed:    cfg.Speed.Min,
		MaxSpeed:    cfg.Speed.Max,
	}
}

// PredatorResult summarizes one predator pass.
type PredatorResult struct {
	Adjustment r2.Vec // Mean heading-weighted displacement toward visible agents
	Seen       int    // Agents inside the vision radius
	Struck     int    // Agents inside the strike radius
}

// PredatorAdjustment steers the predator toward the agents it can see and
// strikes the ones in range.
//
// Each visible agent contributes its displacement scaled by score³, where
// score maps the cosine between the predator's heading and the direction to
// the agent from [-1, 1] to [0, 1]. Agents ahead dominate; agents behind
// barely count. Struck agents are marked Predated and pushed away, then
// re-clamped to the regular speed bounds.
//
// Mutates agents: serial use only, after the index has been rebuilt.
func PredatorAdjustment(
	pred components.Handle,
	agents []components.Agent,
	grid *SpatialHash,
	torus Torus,
	p PredatorParams,
	scratch *Scratch,
) PredatorResult {
	var res PredatorResult

	predator := &agents[pred]
	heading := normalize(predator.Velocity)

	cx, cy := grid.Cell(predator.Position)
	scratch.Neighbors = grid.Query(scratch.Neighbors[:0], cx, cy, p.Cells)

	for _, nh := range scratch.Neighbors {
		if nh == pred {
			continue
		}
		prey := &agents[nh]

		distSq := torus.DistanceSquared(predator.Position, prey.Position)
		if distSq >= p.VisualRadSq {
			continue
		}
		res.Seen++

		disp := torus.WrapDisplacement(prey.Position, predator.Position)
		toPrey := normalize(disp)
		score := (r2.Dot(heading, toPrey) + 1) * 0.5
		res.Adjustment = r2.Add(res.Adjustment, r2.Scale(score*score*score, disp))

		if distSq < p.RadSq {
			res.Struck++
			prey.Predated = true
			if distSq != 0 {
				push := r2.Scale(p.AvoidFactor/math.Sqrt(distSq), toPrey)
				prey.Velocity = ClampSpeed(r2.Add(prey.Velocity, push), p.MinSpeed, p.MaxSpeed)
			}
		}
	}

	if res.Seen > 0 {
		res.Adjustment = r2.Scale(1/float64(res.Seen), res.Adjustment)
	}
	return res
}

// PredatorAvoidance returns the repulsion an agent at pos feels from a
// predator at predPos, and whether the agent is inside the strike radius.
// The push points away from the predator with strength avoidFactor/dist.
func PredatorAvoidance(torus Torus, pos, predPos r2.Vec, radSq, avoidFactor float64) (r2.Vec, bool) {
	away := torus.WrapDisplacement(pos, predPos)
	distSq := r2.Norm2(away)
	if distSq >= radSq {
		return r2.Vec{}, false
	}
	if distSq == 0 {
		return r2.Vec{}, true
	}
	// unit(away) * avoidFactor/dist
	return r2.Scale(avoidFactor/distSq, away), true
}
