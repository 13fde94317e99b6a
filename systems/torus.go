package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Torus describes a wrap-around rectangular domain [0,W) x [0,H).
type Torus struct {
	W, H         float64
	halfW, halfH float64
}

// NewTorus creates the geometry for a W x H domain.
func NewTorus(w, h float64) Torus {
	return Torus{W: w, H: h, halfW: w / 2, halfH: h / 2}
}

// WrapDisplacement returns the shortest displacement a - b across the wrap,
// with |dx| <= W/2 and |dy| <= H/2.
func (t Torus) WrapDisplacement(a, b r2.Vec) r2.Vec {
	d := r2.Sub(a, b)

	if d.X > t.halfW {
		d.X -= t.W
	} else if d.X < -t.halfW {
		d.X += t.W
	}
	if d.Y > t.halfH {
		d.Y -= t.H
	} else if d.Y < -t.halfH {
		d.Y += t.H
	}

	return d
}

// DistanceSquared returns the squared shortest-path distance between a and b.
// Prefer this in comparisons to avoid the square root.
func (t Torus) DistanceSquared(a, b r2.Vec) float64 {
	dx := math.Abs(a.X - b.X)
	dy := math.Abs(a.Y - b.Y)

	if dx > t.halfW {
		dx = t.W - dx
	}
	if dy > t.halfH {
		dy = t.H - dy
	}

	return dx*dx + dy*dy
}

// Distance returns the shortest-path distance between a and b.
func (t Torus) Distance(a, b r2.Vec) float64 {
	return math.Sqrt(t.DistanceSquared(a, b))
}

// WrapPosition folds p back into the domain. It handles a single wrap per
// axis, which holds because one tick never moves an agent a full domain width.
func (t Torus) WrapPosition(p r2.Vec) r2.Vec {
	if p.X < 0 {
		p.X += t.W
	} else if p.X >= t.W {
		p.X -= t.W
	}
	if p.Y < 0 {
		p.Y += t.H
	} else if p.Y >= t.H {
		p.Y -= t.H
	}

	// p.X = -tiny rounds to W after the add; keep the half-open bound
	if p.X >= t.W {
		p.X = 0
	}
	if p.Y >= t.H {
		p.Y = 0
	}
	return p
}
