// Package geom holds the solid-shape geometry used to place body parts:
// rotations, bounding radii, surface sampling and the separation distance
// search between two neighbouring solids.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"fsgeno/internal/model"
)

const (
	minSurfaceSteps = 4
	maxSurfaceSteps = 64
)

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

// Solid is a shape centred at the origin of its own frame. Rotation holds
// Euler angles in radians applied in x, y, z order. Cylinders extend along
// their local x axis.
type Solid struct {
	Shape    model.Shape
	Scale    r3.Vec
	Rotation r3.Vec
}

// RotateEuler rotates v about the x, y and z axes in that order.
func RotateEuler(v, angles r3.Vec) r3.Vec {
	if angles.X != 0 {
		v = r3.NewRotation(angles.X, axisX).Rotate(v)
	}
	if angles.Y != 0 {
		v = r3.NewRotation(angles.Y, axisY).Rotate(v)
	}
	if angles.Z != 0 {
		v = r3.NewRotation(angles.Z, axisZ).Rotate(v)
	}
	return v
}

func Radians(deg r3.Vec) r3.Vec {
	return r3.Scale(math.Pi/180, deg)
}

// MaxRadius is the radius of the smallest origin-centred sphere enclosing s.
func (s Solid) MaxRadius() float64 {
	x, y, z := s.Scale.X, s.Scale.Y, s.Scale.Z
	switch s.Shape {
	case model.ShapeCuboid:
		return math.Sqrt(x*x + y*y + z*z)
	case model.ShapeCylinder:
		r := math.Max(y, z)
		return math.Sqrt(x*x + r*r)
	default:
		return math.Max(x, math.Max(y, z))
	}
}

// MinRadius is the radius of the largest origin-centred sphere inside s.
func (s Solid) MinRadius() float64 {
	return math.Min(s.Scale.X, math.Min(s.Scale.Y, s.Scale.Z))
}

// SurfacePoints samples the surface of s in its rotated frame. density is
// the number of samples per unit of length along each surface direction.
func (s Solid) SurfacePoints(density float64) []r3.Vec {
	var local []r3.Vec
	switch s.Shape {
	case model.ShapeCuboid:
		local = cuboidSurface(s.Scale, density)
	case model.ShapeCylinder:
		local = cylinderSurface(s.Scale, density)
	default:
		local = ellipsoidSurface(s.Scale, density)
	}
	if s.Rotation == (r3.Vec{}) {
		return local
	}
	for i, p := range local {
		local[i] = RotateEuler(p, s.Rotation)
	}
	return local
}

func surfaceSteps(length, density float64) int {
	n := int(math.Ceil(length * density))
	if n < minSurfaceSteps {
		return minSurfaceSteps
	}
	if n > maxSurfaceSteps {
		return maxSurfaceSteps
	}
	return n
}

func ellipsoidSurface(scale r3.Vec, density float64) []r3.Vec {
	r := math.Max(scale.X, math.Max(scale.Y, scale.Z))
	rings := surfaceSteps(math.Pi*r, density)
	around := surfaceSteps(2*math.Pi*r, density)
	points := make([]r3.Vec, 0, (rings+1)*around)
	for i := 0; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		sinT, cosT := math.Sincos(theta)
		for j := 0; j < around; j++ {
			phi := 2 * math.Pi * float64(j) / float64(around)
			sinP, cosP := math.Sincos(phi)
			points = append(points, r3.Vec{
				X: scale.X * sinT * cosP,
				Y: scale.Y * sinT * sinP,
				Z: scale.Z * cosT,
			})
			if i == 0 || i == rings {
				break
			}
		}
	}
	return points
}

func cuboidSurface(scale r3.Vec, density float64) []r3.Vec {
	nx := surfaceSteps(2*scale.X, density)
	ny := surfaceSteps(2*scale.Y, density)
	nz := surfaceSteps(2*scale.Z, density)
	points := make([]r3.Vec, 0, 2*((nx+1)*(ny+1)+(ny+1)*(nz+1)+(nx+1)*(nz+1)))
	grid := func(n int, half float64, k int) float64 {
		return -half + 2*half*float64(k)/float64(n)
	}
	for _, sign := range []float64{-1, 1} {
		for a := 0; a <= ny; a++ {
			for b := 0; b <= nz; b++ {
				points = append(points, r3.Vec{X: sign * scale.X, Y: grid(ny, scale.Y, a), Z: grid(nz, scale.Z, b)})
			}
		}
		for a := 0; a <= nx; a++ {
			for b := 0; b <= nz; b++ {
				points = append(points, r3.Vec{X: grid(nx, scale.X, a), Y: sign * scale.Y, Z: grid(nz, scale.Z, b)})
			}
		}
		for a := 0; a <= nx; a++ {
			for b := 0; b <= ny; b++ {
				points = append(points, r3.Vec{X: grid(nx, scale.X, a), Y: grid(ny, scale.Y, b), Z: sign * scale.Z})
			}
		}
	}
	return points
}

func cylinderSurface(scale r3.Vec, density float64) []r3.Vec {
	r := math.Max(scale.Y, scale.Z)
	along := surfaceSteps(2*scale.X, density)
	around := surfaceSteps(2*math.Pi*r, density)
	radial := surfaceSteps(r, density)
	points := make([]r3.Vec, 0, (along+1)*around+2*radial*around+2)
	for i := 0; i <= along; i++ {
		x := -scale.X + 2*scale.X*float64(i)/float64(along)
		for j := 0; j < around; j++ {
			sinP, cosP := math.Sincos(2 * math.Pi * float64(j) / float64(around))
			points = append(points, r3.Vec{X: x, Y: scale.Y * cosP, Z: scale.Z * sinP})
		}
	}
	for _, x := range []float64{-scale.X, scale.X} {
		points = append(points, r3.Vec{X: x})
		for k := 1; k < radial; k++ {
			f := float64(k) / float64(radial)
			for j := 0; j < around; j++ {
				sinP, cosP := math.Sincos(2 * math.Pi * float64(j) / float64(around))
				points = append(points, r3.Vec{X: x, Y: f * scale.Y * cosP, Z: f * scale.Z * sinP})
			}
		}
	}
	return points
}
