package systems

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
)

// normalize returns the unit vector of v, or the zero vector for zero input.
func normalize(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}

// ClampSpeed rescales v so its magnitude lies in [minSpeed, maxSpeed].
// A zero vector has no heading to keep, so it becomes minSpeed along +X.
func ClampSpeed(v r2.Vec, minSpeed, maxSpeed float64) r2.Vec {
	n := r2.Norm(v)
	switch {
	case n == 0:
		return r2.Vec{X: minSpeed}
	case n < minSpeed:
		return r2.Scale(minSpeed/n, v)
	case n > maxSpeed:
		return r2.Scale(maxSpeed/n, v)
	}
	return v
}

// RandomUnit returns a unit vector with a uniformly random heading.
func RandomUnit(rng *rand.Rand) r2.Vec {
	angle := rng.Float64() * 2 * math.Pi
	return r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
}

// wrapMod returns a mod m in [0, m).
func wrapMod(a, m int) int {
	return (a%m + m) % m
}
