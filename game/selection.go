package game

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/renderer"
)

// ToggleSelection clears the debug agent if one is selected, otherwise
// selects the agent nearest to p. Returns the new selection.
func (g *Game) ToggleSelection(p r2.Vec) components.Handle {
	if g.selected != components.NoHandle {
		g.selected = components.NoHandle
		return g.selected
	}

	h, ok := g.sim.FindNearest(p)
	if !ok {
		return components.NoHandle
	}
	g.selected = h
	slog.Debug("agent selected", "handle", h, "id", g.sim.Agent(h).ID)
	return h
}

// Selected returns the debug agent, or NoHandle.
func (g *Game) Selected() components.Handle {
	return g.selected
}

// selection describes the debug agent for the overlay. ok is false when
// nothing is selected.
func (g *Game) selection() (renderer.Selection, bool) {
	if g.selected == components.NoHandle {
		return renderer.Selection{}, false
	}

	a := g.sim.Agent(g.selected)
	cols, rows, cellSize := g.sim.GridDims()
	cx, cy := g.sim.CellOf(a.Position)

	reach, radius := g.cfg.Derived.NeighborCells, g.cfg.Flock.NeighborRadius
	if a.IsPredator {
		reach, radius = g.cfg.Derived.PredatorCells, g.cfg.Predator.VisualRadius
	}

	return renderer.Selection{
		View:     a.View(g.selected),
		Cell:     renderer.Cell{X: cx, Y: cy},
		Reach:    reach,
		Radius:   radius,
		CellSize: cellSize,
		Cols:     cols,
		Rows:     rows,
	}, true
}

// selectionLabel describes the debug agent for the HUD.
func (g *Game) selectionLabel() string {
	if g.selected == components.NoHandle {
		return ""
	}
	a := g.sim.Agent(g.selected)
	return fmt.Sprintf("%s #%d  neighbours %d  near %d  speed %.2f",
		a.Kind(), a.ID, a.NeighborCount, a.NearNeighborCount, r2.Norm(a.Velocity))
}
