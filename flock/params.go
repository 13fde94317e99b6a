package flock

import "github.com/pthm-cable/boids/config"

// TickParams carries the operator-tunable inputs of one tick.
type TickParams struct {
	AlignmentWeight  float64
	CohesionWeight   float64
	SeparationWeight float64

	// FrameTime is the measured frame duration in seconds. Zero selects the
	// configured fallback, which covers the first frame after startup.
	FrameTime float64

	// Paused skips the tick entirely.
	Paused bool
}

// DefaultParams returns unit weights and the fallback frame time.
func DefaultParams() TickParams {
	return TickParams{
		AlignmentWeight:  1,
		CohesionWeight:   1,
		SeparationWeight: 1,
	}
}

// ParamsFromConfig returns the weights configured under flock.
func ParamsFromConfig(cfg *config.Config) TickParams {
	return TickParams{
		AlignmentWeight:  cfg.Flock.AlignmentWeight,
		CohesionWeight:   cfg.Flock.CohesionWeight,
		SeparationWeight: cfg.Flock.SeparationWeight,
	}
}
