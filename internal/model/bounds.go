package model

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PartBounds holds the global limits every solid part must respect.
type PartBounds struct {
	MinVolume     float64 `json:"min_volume" yaml:"min_volume"`
	MaxVolume     float64 `json:"max_volume" yaml:"max_volume"`
	MinRadius     float64 `json:"min_radius" yaml:"min_radius"`
	MaxRadius     float64 `json:"max_radius" yaml:"max_radius"`
	DefaultRadius float64 `json:"default_radius" yaml:"default_radius"`
}

func DefaultPartBounds() PartBounds {
	return PartBounds{
		MinVolume:     0.1,
		MaxVolume:     30,
		MinRadius:     0.05,
		MaxRadius:     3,
		DefaultRadius: 0.5,
	}
}

var volumeMultipliers = map[Shape]float64{
	ShapeCuboid:    8.0,
	ShapeCylinder:  2.0 * math.Pi,
	ShapeEllipsoid: 4.0 / 3.0 * math.Pi,
}

// Volume returns the volume of a solid with the given radii.
func Volume(shape Shape, scale r3.Vec) float64 {
	return volumeMultipliers[shape] * scale.X * scale.Y * scale.Z
}
