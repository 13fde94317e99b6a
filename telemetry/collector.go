package telemetry

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/boids/components"
)

// Collector accumulates per-tick events within a window and produces
// WindowStats when the window is flushed.
type Collector struct {
	windowDurationTicks int64
	fallbackDT          float64

	windowStartTick int64
	simTime         float64

	// Event counters for the current window
	strikes       int
	predatedTicks int
	collisions    int

	// Reused between flushes
	speeds    []float64
	neighbors []float64
}

// NewCollector creates a stats collector.
// windowTicks: ticks per window; fallbackDT: seconds credited to a tick
// recorded without a frame time, matching the engine's integration rule.
func NewCollector(windowTicks int, fallbackDT float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int64(windowTicks),
		fallbackDT:          fallbackDT,
	}
}

// RecordTick adds one tick's simulated duration and event counts to the
// window. frameTime <= 0 means the tick ran at the fallback step.
func (c *Collector) RecordTick(frameTime float64, strikes, predated, collisions int) {
	if frameTime <= 0 {
		frameTime = c.fallbackDT
	}
	c.simTime += frameTime
	c.strikes += strikes
	c.predatedTicks += predated
	c.collisions += collisions
}

// ShouldFlush returns true once a full window has elapsed.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush samples the flock state in views, combines it with the window's
// events and resets the counters. nearestDists holds each regular agent's
// distance to its nearest neighbor; it may be nil.
func (c *Collector) Flush(currentTick int64, views []components.AgentView, nearestDists []float64) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      c.simTime,
		Strikes:         c.strikes,
		PredatedTicks:   c.predatedTicks,
		Collisions:      c.collisions,
		Polarization:    Polarization(views),
	}

	c.speeds = c.speeds[:0]
	c.neighbors = c.neighbors[:0]
	var nearSum float64
	for _, v := range views {
		speed := math.Hypot(v.VX, v.VY)
		if v.IsPredator {
			stats.PredatorSpeed = speed
			continue
		}
		stats.Agents++
		c.speeds = append(c.speeds, speed)

		// Counts are -1 until the agent's first tick
		n := max(v.NeighborCount, 0)
		c.neighbors = append(c.neighbors, float64(n))
		nearSum += float64(max(v.NearNeighborCount, 0))
		if n == 0 {
			stats.Isolated++
		}
		if v.Predated {
			stats.Predated++
		}
	}

	stats.SpeedMean, stats.SpeedStd, stats.SpeedP10, stats.SpeedP50, stats.SpeedP90 = Distribution(c.speeds)
	stats.NeighborMean, _, _, stats.NeighborP50, stats.NeighborP90 = Distribution(c.neighbors)
	if stats.Agents > 0 {
		stats.NearNeighborMean = nearSum / float64(stats.Agents)
	}
	if len(nearestDists) > 0 {
		stats.NearestDistMean = stat.Mean(nearestDists, nil)
	}

	c.windowStartTick = currentTick
	c.strikes = 0
	c.predatedTicks = 0
	c.collisions = 0

	return stats
}
