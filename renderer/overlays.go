package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/systems"
)

// Overlay colors.
var (
	NetworkColor   = rl.Color{R: 90, G: 160, B: 90, A: 140}
	DensityColor   = rl.Color{R: 200, G: 40, B: 120, A: 255}
	SelectColor    = rl.Color{R: 0, G: 120, B: 255, A: 255}
	CellBlockColor = rl.Color{R: 0, G: 120, B: 255, A: 40}
)

const maxDensityAlpha = 180

// Cell is a grid cell coordinate.
type Cell struct{ X, Y int }

// DrawNearestNetwork draws a segment from each visible agent towards its
// nearest neighbor. Segments take the short way across the wrap.
func DrawNearestNetwork(views []components.AgentView, nearest []components.Handle, torus systems.Torus, vp Viewport) {
	scale := vp.Scale()
	for i, v := range views {
		if i >= len(nearest) || nearest[i] == components.NoHandle || !vp.Visible(v.X, v.Y, 0) {
			continue
		}
		n := views[nearest[i]]
		d := torus.WrapDisplacement(r2.Vec{X: n.X, Y: n.Y}, r2.Vec{X: v.X, Y: v.Y})
		x, y := vp.WorldToScreen(v.X, v.Y)
		rl.DrawLineV(
			rl.Vector2{X: x, Y: y},
			rl.Vector2{X: x + float32(d.X)*scale, Y: y + float32(d.Y)*scale},
			NetworkColor,
		)
	}
}

// DensityAlpha maps a cell count onto an overlay alpha, saturating at
// maxCount.
func DensityAlpha(count, maxCount int) uint8 {
	if count <= 0 || maxCount <= 0 {
		return 0
	}
	if count >= maxCount {
		return maxDensityAlpha
	}
	return uint8(count * maxDensityAlpha / maxCount)
}

// DrawDensity shades every visible grid cell by its occupancy.
func DrawDensity(cols, rows int, cellSize float64, occupancy func(cx, cy int) int, maxCount int, vp Viewport) {
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			a := DensityAlpha(occupancy(cx, cy), maxCount)
			if a == 0 {
				continue
			}
			col := DensityColor
			col.A = a
			if rect, ok := cellRect(cx, cy, cellSize, vp); ok {
				rl.DrawRectangleRec(rect, col)
			}
		}
	}
}

// cellRect returns the screen rectangle of a grid cell, placed by its center
// so cells straddling the view seam stay whole.
func cellRect(cx, cy int, cellSize float64, vp Viewport) (rl.Rectangle, bool) {
	half := cellSize / 2
	x, y := float64(cx)*cellSize+half, float64(cy)*cellSize+half
	if !vp.Visible(x, y, cellSize) {
		return rl.Rectangle{}, false
	}
	sx, sy := vp.WorldToScreen(x, y)
	size := float32(cellSize) * vp.Scale()
	return rl.Rectangle{X: sx - size/2, Y: sy - size/2, Width: size, Height: size}, true
}

// BlockCells returns the distinct cells of the (2k+1)x(2k+1) block centered
// on (cx, cy), wrapped onto a cols x rows grid.
func BlockCells(cx, cy, k, cols, rows int) []Cell {
	seen := make(map[Cell]struct{})
	var cells []Cell
	for dy := -k; dy <= k; dy++ {
		for dx := -k; dx <= k; dx++ {
			c := Cell{X: mod(cx+dx, cols), Y: mod(cy+dy, rows)}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			cells = append(cells, c)
		}
	}
	return cells
}

func mod(a, m int) int {
	return ((a % m) + m) % m
}

// Selection describes the debug agent and the neighborhood it reads.
type Selection struct {
	View     components.AgentView
	Cell     Cell
	Reach    int     // Block radius in cells
	Radius   float64 // Interaction radius
	CellSize float64
	Cols     int
	Rows     int
}

// DrawSelection outlines the selected agent's neighbor cells and its
// interaction radius.
func DrawSelection(s Selection, vp Viewport) {
	for _, c := range BlockCells(s.Cell.X, s.Cell.Y, s.Reach, s.Cols, s.Rows) {
		if rect, ok := cellRect(c.X, c.Y, s.CellSize, vp); ok {
			rl.DrawRectangleRec(rect, CellBlockColor)
			rl.DrawRectangleLinesEx(rect, 1, SelectColor)
		}
	}

	x, y := vp.WorldToScreen(s.View.X, s.View.Y)
	center := rl.Vector2{X: x, Y: y}
	rl.DrawCircleLinesV(center, float32(s.Radius)*vp.Scale(), SelectColor)
	rl.DrawCircleV(center, 3, SelectColor)
}
