package game

import (
	"log/slog"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/server"
	"github.com/pthm-cable/boids/telemetry"
)

// recordTick feeds the tick's events to the collectors and publishes on
// schedule. frameTime is the step the engine integrated with, 0 for the
// fallback.
func (g *Game) recordTick(frameTime float64) {
	tick := g.Tick()
	g.views = g.sim.Views(g.views[:0])

	predated := 0
	for i := range g.views {
		if g.views[i].Predated {
			predated++
		}
	}
	pass := g.sim.LastPredatorPass()
	collisions := g.sim.LastCollisions()

	g.collector.RecordTick(frameTime, pass.Struck, predated, collisions)
	g.perfCollector.RecordWorkload(len(g.views), collisions)
	g.metrics.ObserveFlock(len(g.views)-1, predated, pass.Struck, collisions)

	if _, err := g.recorder.Capture(tick, g.views, g.sim.Width(), g.sim.Height()); err != nil {
		slog.Error("failed to capture frame", "tick", tick, "error", err)
	}

	g.flushTelemetry()

	if interval := int64(g.cfg.Telemetry.SnapshotInterval); interval <= 1 || tick%interval == 0 {
		g.publish()
	}
}

// flushTelemetry closes the stats window when due and handles bookmarks.
func (g *Game) flushTelemetry() {
	tick := g.Tick()
	if !g.collector.ShouldFlush(tick) {
		return
	}

	stats := g.collector.Flush(tick, g.views, g.nearestDistances())
	perfStats := g.perfCollector.Stats()
	g.lastWindow = &stats
	g.metrics.SetPolarization(stats.Polarization)

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
			g.saveSnapshot(&bm)
		}
	}
}

// nearestNeighbors fills g.nearest with each agent's nearest other agent.
func (g *Game) nearestNeighbors() []components.Handle {
	g.nearest = g.nearest[:0]
	for i := 0; i < g.sim.Len(); i++ {
		h, ok := g.sim.NearestNeighbor(components.Handle(i))
		if !ok {
			h = components.NoHandle
		}
		g.nearest = append(g.nearest, h)
	}
	return g.nearest
}

// nearestDistances returns each regular agent's distance to its nearest
// neighbor.
func (g *Game) nearestDistances() []float64 {
	torus := g.sim.Torus()
	g.distance = g.distance[:0]
	for i, h := range g.nearestNeighbors() {
		self := components.Handle(i)
		if h == components.NoHandle || self == g.sim.Predator() {
			continue
		}
		g.distance = append(g.distance, torus.Distance(g.sim.Agent(self).Position, g.sim.Agent(h).Position))
	}
	return g.distance
}

// saveSnapshot writes the committed flock state alongside a bookmark.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := g.outputManager.WriteSnapshot(g.createSnapshot(bookmark))
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", g.Tick())
}

// createSnapshot builds a snapshot from the current state.
func (g *Game) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		Seed:        g.seed,
		WorldWidth:  g.sim.Width(),
		WorldHeight: g.sim.Height(),
		Tick:        g.Tick(),
		Agents:      g.sim.Views(nil),
		Bookmark:    bookmark,
	}
}

// publish hands observers an immutable copy of the committed state.
func (g *Game) publish() {
	if g.publisher == nil {
		return
	}

	agents := g.sim.Views(make([]components.AgentView, 0, g.sim.Len()))
	g.publisher.Publish(&server.Frame{
		Tick:         g.Tick(),
		Width:        g.sim.Width(),
		Height:       g.sim.Height(),
		Paused:       g.paused,
		Polarization: telemetry.Polarization(agents),
		Agents:       agents,
		Window:       g.lastWindow,
	})
}
