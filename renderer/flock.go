// Package renderer draws the flock and its debug overlays with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boids/components"
)

// Agent colors.
var (
	BoidColor     = rl.Color{R: 40, G: 70, B: 120, A: 255}
	PredatedColor = rl.Color{R: 240, G: 140, B: 30, A: 255}
	PredatorColor = rl.Red
	OutlineColor  = rl.Color{R: 20, G: 20, B: 30, A: 160}
)

const (
	boidRadius     = 4.0
	predatorRadius = 10.0
	pointRadius    = 1.5
)

// GlyphVertices returns the tip and rear corners of a triangle of the given
// radius pointing along (vx, vy). A zero velocity points along +X.
func GlyphVertices(x, y, vx, vy, radius float32) (tip, left, right rl.Vector2) {
	heading := math.Atan2(float64(vy), float64(vx))
	r := float64(radius)

	tip = rl.Vector2{
		X: x + float32(math.Cos(heading)*r*1.5),
		Y: y + float32(math.Sin(heading)*r*1.5),
	}
	back := heading + math.Pi*0.8
	left = rl.Vector2{X: x + float32(math.Cos(back)*r), Y: y + float32(math.Sin(back)*r)}
	back = heading - math.Pi*0.8
	right = rl.Vector2{X: x + float32(math.Cos(back)*r), Y: y + float32(math.Sin(back)*r)}
	return tip, left, right
}

// Viewport maps world positions onto the screen. *camera.Camera implements it.
type Viewport interface {
	WorldToScreen(x, y float64) (sx, sy float32)
	Scale() float32
	Visible(x, y, radius float64) bool
}

// FlockRenderer draws agents either as oriented glyphs or as points.
type FlockRenderer struct {
	FullGlyph bool
}

// Draw renders the visible views with the predator on top and returns the
// number of agents drawn.
func (r *FlockRenderer) Draw(views []components.AgentView, vp Viewport) int {
	drawn := 0
	predator := -1
	for i := range views {
		v := &views[i]
		if v.IsPredator {
			predator = i
			continue
		}
		if !vp.Visible(v.X, v.Y, boidRadius*1.5) {
			continue
		}
		col := BoidColor
		if v.Predated {
			col = PredatedColor
		}
		r.drawAgent(v, vp, boidRadius, col)
		drawn++
	}
	if predator >= 0 && vp.Visible(views[predator].X, views[predator].Y, predatorRadius*1.5) {
		// The predator is always a full glyph so it stays visible
		drawGlyph(&views[predator], vp, predatorRadius, PredatorColor)
		drawn++
	}
	return drawn
}

func (r *FlockRenderer) drawAgent(v *components.AgentView, vp Viewport, radius float32, col rl.Color) {
	if !r.FullGlyph {
		x, y := vp.WorldToScreen(v.X, v.Y)
		rl.DrawCircleV(rl.Vector2{X: x, Y: y}, max(pointRadius*vp.Scale(), 1), col)
		return
	}
	drawGlyph(v, vp, radius, col)
}

func drawGlyph(v *components.AgentView, vp Viewport, radius float32, col rl.Color) {
	x, y := vp.WorldToScreen(v.X, v.Y)
	tip, left, right := GlyphVertices(x, y, float32(v.VX), float32(v.VY), radius*vp.Scale())

	// DrawTriangle needs counter-clockwise winding
	rl.DrawTriangle(tip, right, left, col)
	rl.DrawTriangleLines(tip, left, right, OutlineColor)
}
