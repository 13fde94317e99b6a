// Package camera maps the toroidal arena onto the window with pan and zoom.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/systems"
)

// Camera controls the viewport into the arena.
//
// A world point is drawn at its shortest wrapped displacement from the
// camera center, so panning across a seam is seamless and every agent
// appears once.
type Camera struct {
	// Center is the world point under the middle of the viewport
	Center r2.Vec

	// Zoom level (1 = one world unit per pixel)
	Zoom float64

	ViewportW, ViewportH float64

	MinZoom, MaxZoom float64

	torus systems.Torus
}

// New creates a camera centered on the arena at 1:1 zoom, or closer if the
// viewport is larger than the arena.
func New(viewportW, viewportH float64, torus systems.Torus) *Camera {
	c := &Camera{
		Zoom:    1,
		MaxZoom: 4,
		torus:   torus,
	}
	c.Resize(viewportW, viewportH)
	c.Reset()
	return c
}

// WorldToScreen converts a world position to screen pixels.
func (c *Camera) WorldToScreen(x, y float64) (sx, sy float32) {
	d := c.torus.WrapDisplacement(r2.Vec{X: x, Y: y}, c.Center)
	return float32(c.ViewportW/2 + d.X*c.Zoom), float32(c.ViewportH/2 + d.Y*c.Zoom)
}

// ScreenToWorld converts screen pixels to a wrapped world position.
func (c *Camera) ScreenToWorld(sx, sy float32) r2.Vec {
	return r2.Vec{
		X: mod(c.Center.X+(float64(sx)-c.ViewportW/2)/c.Zoom, c.torus.W),
		Y: mod(c.Center.Y+(float64(sy)-c.ViewportH/2)/c.Zoom, c.torus.H),
	}
}

// Scale returns screen pixels per world unit.
func (c *Camera) Scale() float32 {
	return float32(c.Zoom)
}

// Visible reports whether a circle at (x, y) could overlap the viewport.
func (c *Camera) Visible(x, y, radius float64) bool {
	d := c.torus.WrapDisplacement(r2.Vec{X: x, Y: y}, c.Center)
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return d.X >= -halfW && d.X <= halfW && d.Y >= -halfH && d.Y <= halfH
}

// Resize updates the viewport and raises the minimum zoom so the view never
// exceeds the arena.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = max(viewportW/c.torus.W, viewportH/c.torus.H)
	c.SetZoom(c.Zoom)
}

// Pan moves the camera by a screen-pixel delta, wrapping across seams.
func (c *Camera) Pan(dx, dy float64) {
	c.Center = r2.Vec{X: mod(c.Center.X+dx/c.Zoom, c.torus.W), Y: mod(c.Center.Y+dy/c.Zoom, c.torus.H)}
}

// SetZoom sets the zoom level, clamped to the allowed range.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = min(max(zoom, c.MinZoom), max(c.MaxZoom, c.MinZoom))
}

// ZoomBy multiplies the current zoom by factor.
func (c *Camera) ZoomBy(factor float64) {
	c.SetZoom(c.Zoom * factor)
}

// Reset centers the camera on the arena at the lowest zoom that fills the
// viewport, at least 1:1.
func (c *Camera) Reset() {
	c.Center = r2.Vec{X: c.torus.W / 2, Y: c.torus.H / 2}
	c.SetZoom(1)
}

// mod is the positive modulo; points far off screen may wrap more than once.
func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	if r >= m {
		return 0
	}
	return r
}
