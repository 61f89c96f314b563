// Package genotype implements the fS ("Solid") genotype encoding: a textual
// description of a tree of solid body parts carrying neurons.
//
// A genotype reads as "multiplier,turn,strength:" followed by the root node.
// A node is a run of modifier and joint letters, a part letter (E, C or R),
// an optional neuron block "[...]", an optional parameter block "{...}" and
// its children: either one node directly, or "(a^b^c)" for branching.
package genotype

import (
	"gonum.org/v1/gonum/spatial/r3"

	"fsgeno/internal/geom"
	"fsgeno/internal/model"
)

const (
	modeSeparator   = ':'
	headerSeparator = ','
	branchStart     = '('
	branchEnd       = ')'
	branchSeparator = '^'
	paramStart      = '{'
	paramEnd        = '}'
	paramSeparator  = ';'
	paramValueSep   = '='
	neuronStart     = '['
	neuronEnd       = ']'
	neuronSeparator = ';'
	neuronInputSep  = '_'
	neuronWeightSep = ':'
)

const defaultJoint byte = 'a'

// Modifier letters. Upper case raises the multiplier, lower case lowers it.
const (
	ModIngestion byte = 'i'
	ModFriction  byte = 'f'
	ModSize      byte = 's'
)

// Modifiers lists the modifier letters in serialization order.
var Modifiers = []byte{ModIngestion, ModFriction, ModSize}

// Joints lists the joint letters; 'a' is the implicit default.
var Joints = []byte{'a', 'b', 'c'}

var jointTypes = map[byte]model.JointType{
	'a': model.JointFixed,
	'b': model.JointHingeX,
	'c': model.JointHingeXY,
}

var shapeLetters = map[byte]model.Shape{
	'E': model.ShapeEllipsoid,
	'C': model.ShapeCuboid,
	'R': model.ShapeCylinder,
}

// ShapeLetter returns the genotype letter for a part shape.
func ShapeLetter(s model.Shape) byte {
	for letter, shape := range shapeLetters {
		if shape == s {
			return letter
		}
	}
	return 'E'
}

func ShapeFromLetter(c byte) (model.Shape, bool) {
	s, ok := shapeLetters[c]
	return s, ok
}

// Parameter keys.
const (
	ParamIngestion = "i"
	ParamFriction  = "f"
	ParamStiffness = "st"
	ParamTurnX     = "tx"
	ParamTurnY     = "ty"
	ParamTurnZ     = "tz"
	ParamRotX      = "rx"
	ParamRotY      = "ry"
	ParamRotZ      = "rz"
	ParamScale     = "s"
	ParamScaleX    = "x"
	ParamScaleY    = "y"
	ParamScaleZ    = "z"
)

// ParamSpec describes the default and the mutation range of one parameter.
type ParamSpec struct {
	Key     string
	Default float64
	Min     float64
	Max     float64
	Angle   bool
}

// ParamKeys lists every parameter key in serialization order.
var ParamKeys = []string{
	ParamIngestion, ParamFriction, ParamStiffness,
	ParamTurnX, ParamTurnY, ParamTurnZ,
	ParamRotX, ParamRotY, ParamRotZ,
	ParamScale, ParamScaleX, ParamScaleY, ParamScaleZ,
}

var paramSpecs = map[string]ParamSpec{
	ParamIngestion: {Key: ParamIngestion, Default: 0.5, Min: 0, Max: 1},
	ParamFriction:  {Key: ParamFriction, Default: 0.4, Min: 0, Max: 10},
	ParamStiffness: {Key: ParamStiffness, Default: 1, Min: 0.1, Max: 10},
	ParamTurnX:     {Key: ParamTurnX, Min: -360, Max: 360, Angle: true},
	ParamTurnY:     {Key: ParamTurnY, Min: -360, Max: 360, Angle: true},
	ParamTurnZ:     {Key: ParamTurnZ, Min: -360, Max: 360, Angle: true},
	ParamRotX:      {Key: ParamRotX, Min: -360, Max: 360, Angle: true},
	ParamRotY:      {Key: ParamRotY, Min: -360, Max: 360, Angle: true},
	ParamRotZ:      {Key: ParamRotZ, Min: -360, Max: 360, Angle: true},
	ParamScale:     {Key: ParamScale, Default: 1, Min: 0.01, Max: 100},
	ParamScaleX:    {Key: ParamScaleX, Default: 0.5, Min: 0.01, Max: 100},
	ParamScaleY:    {Key: ParamScaleY, Default: 0.5, Min: 0.01, Max: 100},
	ParamScaleZ:    {Key: ParamScaleZ, Default: 0.5, Min: 0.01, Max: 100},
}

func LookupParam(key string) (ParamSpec, bool) {
	spec, ok := paramSpecs[key]
	return spec, ok
}

// IsScaleParam reports whether key changes the size of a part.
func IsScaleParam(key string) bool {
	switch key {
	case ParamScale, ParamScaleX, ParamScaleY, ParamScaleZ:
		return true
	}
	return false
}

// Header defaults.
const (
	DefaultModifierMultiplier    = 1.1
	DefaultParamMutationStrength = 0.4
)

// Params is the global parameter triple written before the mode separator.
type Params struct {
	ModifierMultiplier    float64
	TurnWithRotation      bool
	ParamMutationStrength float64
}

func DefaultParams() Params {
	return Params{
		ModifierMultiplier:    DefaultModifierMultiplier,
		ParamMutationStrength: DefaultParamMutationStrength,
	}
}

// Options carries the limits and tunables used when validating, placing and
// printing genotypes.
type Options struct {
	Bounds              model.PartBounds
	Distance            geom.DistanceOptions
	EnsureCircleSection bool
	Precision           int
	// Header supplies the parameters a genotype text leaves out.
	Header Params
}

// HeaderDefaults returns o.Header, or DefaultParams when it is unset.
func (o Options) HeaderDefaults() Params {
	if o.Header.ModifierMultiplier <= 0 {
		return DefaultParams()
	}
	return o.Header
}

// ParamDefault is the value of key on a node that does not set it. The
// per-axis radii default to Bounds.DefaultRadius.
func (o Options) ParamDefault(key string) float64 {
	switch key {
	case ParamScaleX, ParamScaleY, ParamScaleZ:
		if o.Bounds.DefaultRadius > 0 {
			return o.Bounds.DefaultRadius
		}
	}
	return paramSpecs[key].Default
}

func DefaultOptions() Options {
	return Options{
		Bounds:              model.DefaultPartBounds(),
		Distance:            geom.DefaultDistanceOptions(),
		EnsureCircleSection: true,
		Precision:           DefaultPrecision,
		Header:              DefaultParams(),
	}
}

// NodeID indexes a node inside its genotype's arena.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// Substring is a view into the text a node was parsed from. Start is -1 for
// nodes created after parsing.
type Substring struct {
	Start int
	Len   int
}

func (s Substring) Valid() bool {
	return s.Start >= 0
}

// Text returns the spanned text of src, or "" when the span does not fit.
func (s Substring) Text(src string) string {
	if !s.Valid() || s.Start+s.Len > len(src) {
		return ""
	}
	return src[s.Start : s.Start+s.Len]
}

// Neuron inputs are keyed by the flattened index of the source neuron.
type Neuron struct {
	Class  string
	Inputs map[int]float64
}

func (n Neuron) clone() Neuron {
	out := Neuron{Class: n.Class}
	if len(n.Inputs) > 0 {
		out.Inputs = make(map[int]float64, len(n.Inputs))
		for k, v := range n.Inputs {
			out.Inputs[k] = v
		}
	}
	return out
}

type Node struct {
	Shape     model.Shape
	Joint     byte
	Modifiers map[byte]int
	Params    map[string]float64
	Neurons   []Neuron
	Children  []NodeID
	Parent    NodeID
	Span      Substring
}

func newNode(parent NodeID) Node {
	return Node{
		Joint:     defaultJoint,
		Modifiers: map[byte]int{},
		Params:    map[string]float64{},
		Parent:    parent,
		Span:      Substring{Start: -1},
	}
}

// NewNode returns a detached node with the default joint and no parameters,
// ready for AddChild.
func NewNode(shape model.Shape) Node {
	n := newNode(NoNode)
	n.Shape = shape
	return n
}

// Param returns the explicit value of key or its default.
func (n *Node) Param(key string) float64 {
	if v, ok := n.Params[key]; ok {
		return v
	}
	return paramSpecs[key].Default
}

// ParamWith is Param with defaults taken from opts.
func (n *Node) ParamWith(key string, opts Options) float64 {
	if v, ok := n.Params[key]; ok {
		return v
	}
	return opts.ParamDefault(key)
}

// JointType maps the joint letter onto the model joint type.
func (n *Node) JointType() model.JointType {
	return jointTypes[n.Joint]
}

// Rotation returns the part orientation in radians.
func (n *Node) Rotation() r3.Vec {
	return geom.Radians(r3.Vec{X: n.Param(ParamRotX), Y: n.Param(ParamRotY), Z: n.Param(ParamRotZ)})
}

// Turn returns the growth vector rotation in radians.
func (n *Node) Turn() r3.Vec {
	return geom.Radians(r3.Vec{X: n.Param(ParamTurnX), Y: n.Param(ParamTurnY), Z: n.Param(ParamTurnZ)})
}

func (n Node) clone() Node {
	out := n
	out.Modifiers = make(map[byte]int, len(n.Modifiers))
	for k, v := range n.Modifiers {
		out.Modifiers[k] = v
	}
	out.Params = make(map[string]float64, len(n.Params))
	for k, v := range n.Params {
		out.Params[k] = v
	}
	out.Neurons = make([]Neuron, len(n.Neurons))
	for i := range n.Neurons {
		out.Neurons[i] = n.Neurons[i].clone()
	}
	out.Children = append([]NodeID(nil), n.Children...)
	return out
}

// Genotype owns its node arena exclusively. Node 0 is the root once the
// genotype is compacted.
type Genotype struct {
	Params Params
	Nodes  []Node
	Root   NodeID
	Source string
}

func (g *Genotype) Node(id NodeID) *Node {
	return &g.Nodes[id]
}

// Clone returns a deep copy sharing no mutable state with g.
func (g *Genotype) Clone() *Genotype {
	out := &Genotype{
		Params: g.Params,
		Nodes:  make([]Node, len(g.Nodes)),
		Root:   g.Root,
		Source: g.Source,
	}
	for i := range g.Nodes {
		out.Nodes[i] = g.Nodes[i].clone()
	}
	return out
}
