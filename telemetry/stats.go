package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/boids/components"
)

// WindowStats holds aggregated flock statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"` // Summed integration steps since the start
	Agents          int     `csv:"agents"`

	// Events summed over the window
	Strikes       int `csv:"strikes"`        // Agents inside the strike radius during the predator phase
	PredatedTicks int `csv:"predated_ticks"` // Agent-ticks spent marked Predated
	Collisions    int `csv:"collisions"`     // Coincident pairs separated

	// Alignment (sampled at window end)
	Polarization float64 `csv:"polarization"` // |mean unit heading|, 0 = disordered, 1 = aligned

	// Speed distribution
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Neighborhood structure
	NeighborMean     float64 `csv:"neighbor_mean"`
	NeighborP50      float64 `csv:"neighbor_p50"`
	NeighborP90      float64 `csv:"neighbor_p90"`
	NearNeighborMean float64 `csv:"near_neighbor_mean"`
	Isolated         int     `csv:"isolated"`     // Agents with no neighbors in range
	NearestDistMean  float64 `csv:"nn_dist_mean"` // Mean distance to the nearest other agent

	// Predator
	Predated      int     `csv:"predated"`
	PredatorSpeed float64 `csv:"predator_speed"`
}

// Distribution returns the mean, standard deviation and 10/50/90th
// percentiles of values. Returns zeros for an empty slice.
func Distribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std = stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0
	}
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p10, p50, p90
}

// Polarization returns the length of the mean unit heading of the regular
// agents in views. Stationary agents and the predator are ignored.
func Polarization(views []components.AgentView) float64 {
	var sum r2.Vec
	n := 0
	for _, v := range views {
		if v.IsPredator {
			continue
		}
		vel := r2.Vec{X: v.VX, Y: v.VY}
		speed := r2.Norm(vel)
		if speed == 0 {
			continue
		}
		sum = r2.Add(sum, r2.Scale(1/speed, vel))
		n++
	}
	if n == 0 {
		return 0
	}
	return r2.Norm(sum) / float64(n)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Int("strikes", s.Strikes),
		slog.Int("predated_ticks", s.PredatedTicks),
		slog.Int("collisions", s.Collisions),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("neighbor_mean", s.NeighborMean),
		slog.Float64("neighbor_p50", s.NeighborP50),
		slog.Float64("neighbor_p90", s.NeighborP90),
		slog.Float64("near_neighbor_mean", s.NearNeighborMean),
		slog.Int("isolated", s.Isolated),
		slog.Float64("nn_dist_mean", s.NearestDistMean),
		slog.Int("predated", s.Predated),
		slog.Float64("predator_speed", s.PredatorSpeed),
	)
}

// LogStats logs the headline numbers of the window.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.Agents,
		"polarization", s.Polarization,
		"speed_mean", s.SpeedMean,
		"neighbor_mean", s.NeighborMean,
		"isolated", s.Isolated,
		"nn_dist_mean", s.NearestDistMean,
		"strikes", s.Strikes,
		"collisions", s.Collisions,
	)
}
