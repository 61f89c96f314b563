package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DistanceOptions tunes the separation search. The values have no exact
// geometric derivation; they trade accuracy for speed.
type DistanceOptions struct {
	Tolerance  float64 `json:"tolerance" yaml:"tolerance"`
	Density    float64 `json:"density" yaml:"density"`
	HighFactor float64 `json:"high_factor" yaml:"high_factor"`
}

func DefaultDistanceOptions() DistanceOptions {
	return DistanceOptions{
		Tolerance:  0.01,
		Density:    10,
		HighFactor: 1.5,
	}
}

func (o DistanceOptions) normalized() DistanceOptions {
	def := DefaultDistanceOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	if o.Density <= 0 {
		o.Density = def.Density
	}
	if o.HighFactor < 1 {
		o.HighFactor = def.HighFactor
	}
	return o
}

// SeparationDistance returns the centre-to-centre distance along direction
// at which b, moved away from a, no longer collides with it. a sits at the
// origin. A zero direction is treated as +x.
//
// Collision is tested against a's bounding sphere only, so the result can
// overshoot for elongated shapes.
func SeparationDistance(a, b Solid, direction r3.Vec, opts DistanceOptions) float64 {
	opts = opts.normalized()

	dir := r3.Vec{X: 1}
	if n := r3.Norm(direction); n > 0 && !math.IsNaN(n) && !math.IsInf(n, 0) {
		dir = r3.Scale(1/n, direction)
	}

	reach := a.MaxRadius()
	reach2 := reach * reach
	samples := b.SurfacePoints(opts.Density)
	collides := func(d float64) bool {
		offset := r3.Scale(d, dir)
		for _, p := range samples {
			if r3.Norm2(r3.Add(p, offset)) < reach2 {
				return true
			}
		}
		return false
	}

	low := a.MinRadius() + b.MinRadius()
	high := (reach + b.MaxRadius()) * opts.HighFactor
	if !collides(low) {
		return low
	}
	if collides(high) {
		return high
	}

	iterations := 1
	if span := high - low; span > opts.Tolerance {
		iterations = int(math.Ceil(math.Log2(span/opts.Tolerance))) + 1
	}
	for i := 0; i < iterations && high-low > opts.Tolerance; i++ {
		mid := (low + high) / 2
		if collides(mid) {
			low = mid
		} else {
			high = mid
		}
	}
	return (low + high) / 2
}
