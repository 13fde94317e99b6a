package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boids/renderer"
	"github.com/pthm-cable/boids/telemetry"
	"github.com/pthm-cable/boids/ui"
)

var perfPhases = []string{
	telemetry.PhaseParallel,
	telemetry.PhaseCommit,
	telemetry.PhasePredator,
	telemetry.PhaseTelemetry,
}

// Draw renders the arena, the overlays and the UI. It reads only committed
// state, so it never runs concurrently with a tick.
func (g *Game) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(rl.RayWhite)

	g.views = g.sim.Views(g.views[:0])

	if g.overlays.IsEnabled(ui.OverlayDensity) {
		cols, rows, cellSize := g.sim.GridDims()
		renderer.DrawDensity(cols, rows, cellSize, g.sim.CellOccupancy, g.cfg.Grid.InitialCellCap, g.cam)
	}
	if g.overlays.IsEnabled(ui.OverlayNearestNetwork) {
		renderer.DrawNearestNetwork(g.views, g.nearestNeighbors(), g.sim.Torus(), g.cam)
	}

	g.flockRenderer.FullGlyph = g.overlays.IsEnabled(ui.OverlayFullGlyph)
	g.drawn = g.flockRenderer.Draw(g.views, g.cam)

	if sel, ok := g.selection(); ok {
		renderer.DrawSelection(sel, g.cam)
	}

	g.hud.Draw(ui.HUDData{
		Title:        Title,
		Width:        rl.GetScreenWidth(),
		Height:       rl.GetScreenHeight(),
		Drawn:        g.drawn,
		FrameTime:    g.frameTime,
		Workers:      g.sim.Workers(),
		Tick:         g.Tick(),
		Paused:       g.paused,
		Polarization: telemetry.Polarization(g.views),
		Selected:     g.selectionLabel(),
	})
	g.controls.Draw(g.overlays, &g.params)

	if g.overlays.IsEnabled(ui.OverlayPerf) {
		g.perfPanel.Draw(g.perfCollector.Stats(), perfPhases)
	}

	g.hud.DrawControls(int32(rl.GetScreenHeight()),
		"[space] pause  [right click] select  [G] glyphs  [D] density  [N] neighbours  [P] phases  [arrows/wheel] camera  [Home] reset  [F11] fullscreen")
}
