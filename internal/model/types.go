package model

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type Shape int

const (
	ShapeEllipsoid Shape = iota
	ShapeCuboid
	ShapeCylinder
)

var shapeNames = map[Shape]string{
	ShapeEllipsoid: "ellipsoid",
	ShapeCuboid:    "cuboid",
	ShapeCylinder:  "cylinder",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

func (s Shape) Valid() bool {
	_, ok := shapeNames[s]
	return ok
}

func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid shape: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(text []byte) error {
	for shape, name := range shapeNames {
		if name == string(text) {
			*s = shape
			return nil
		}
	}
	return fmt.Errorf("unknown shape: %q", string(text))
}

// Shapes lists every solid shape in a stable order.
func Shapes() []Shape {
	return []Shape{ShapeEllipsoid, ShapeCuboid, ShapeCylinder}
}

type JointType int

const (
	JointFixed JointType = iota
	JointHingeX
	JointHingeXY
)

var jointNames = map[JointType]string{
	JointFixed:   "fixed",
	JointHingeX:  "hinge_x",
	JointHingeXY: "hinge_xy",
}

func (j JointType) String() string {
	if name, ok := jointNames[j]; ok {
		return name
	}
	return fmt.Sprintf("joint(%d)", int(j))
}

func (j JointType) MarshalText() ([]byte, error) {
	if _, ok := jointNames[j]; !ok {
		return nil, fmt.Errorf("invalid joint type: %d", int(j))
	}
	return []byte(j.String()), nil
}

func (j *JointType) UnmarshalText(text []byte) error {
	for jt, name := range jointNames {
		if name == string(text) {
			*j = jt
			return nil
		}
	}
	return fmt.Errorf("unknown joint type: %q", string(text))
}

// Part is one placed solid. Rotation holds Euler angles in radians applied
// in x, y, z order; Scale holds the three radii.
type Part struct {
	Shape     Shape   `json:"shape"`
	Position  r3.Vec  `json:"position"`
	Rotation  r3.Vec  `json:"rotation"`
	Scale     r3.Vec  `json:"scale"`
	Friction  float64 `json:"friction"`
	Ingestion float64 `json:"ingestion"`
}

type Joint struct {
	From      int       `json:"from"`
	To        int       `json:"to"`
	Type      JointType `json:"type"`
	Stiffness float64   `json:"stiffness"`
}

// Neuron is attached to at most one of Part or Joint; -1 marks no attachment.
type Neuron struct {
	Class string `json:"class"`
	Part  int    `json:"part"`
	Joint int    `json:"joint"`
}

// Connection feeds the output of neuron From into neuron To.
type Connection struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

// SpanMapping ties a range of genotype text to the model elements it produced.
type SpanMapping struct {
	Start int `json:"start"`
	Len   int `json:"len"`
	Part  int `json:"part"`
	Joint int `json:"joint"`
}
