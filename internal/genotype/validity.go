package genotype

import (
	"errors"
	"fmt"
	"math"

	"fsgeno/internal/model"
	"fsgeno/internal/nn"
)

// CheckValidity parses and validates text with default options. On failure
// it returns the 1-based position of the offending character.
func CheckValidity(text string) (int, bool) {
	return CheckValidityWith(text, DefaultOptions())
}

func CheckValidityWith(text string, opts Options) (int, bool) {
	g, err := ParseWith(text, opts)
	if err == nil {
		err = g.Validate(opts)
	}
	if err == nil {
		return 0, true
	}
	return ErrorPosition(err), false
}

// ErrorPosition maps a parse or validity error to a 1-based text position.
// Errors without a position map to 1.
func ErrorPosition(err error) int {
	var perr *ParseError
	if errors.As(err, &perr) {
		return perr.Offset + 1
	}
	var verr *ValidityError
	if errors.As(err, &verr) && verr.Offset >= 0 {
		return verr.Offset + 1
	}
	return 1
}

// Validate checks every node and every neuron reference of g.
func (g *Genotype) Validate(opts Options) error {
	states := g.Multipliers()
	for _, id := range g.PreOrder() {
		if err := g.validateNode(id, states[id], opts); err != nil {
			return err
		}
	}
	return g.validateNeurons()
}

// ValidateNode checks the part of a single node.
func (g *Genotype) ValidateNode(id NodeID, opts Options) error {
	return g.validateNode(id, g.Multipliers()[id], opts)
}

// ValidateSubtree checks the parts of id and its descendants, which is what
// a modifier change on id can affect.
func (g *Genotype) ValidateSubtree(id NodeID, opts Options) error {
	states := g.Multipliers()
	for _, cur := range g.Subtree(id) {
		if err := g.validateNode(cur, states[cur], opts); err != nil {
			return err
		}
	}
	return nil
}

func (g *Genotype) invalid(id NodeID, format string, args ...any) *ValidityError {
	return &ValidityError{Node: id, Offset: g.Nodes[id].Span.Start, Msg: fmt.Sprintf(format, args...)}
}

func (g *Genotype) validateNode(id NodeID, s State, opts Options) error {
	n := &g.Nodes[id]
	if n.Parent == NoNode && n.Joint != defaultJoint {
		return g.invalid(id, "root part cannot have joint type %q", n.Joint)
	}
	for _, key := range ParamKeys {
		v, ok := n.Params[key]
		if !ok {
			continue
		}
		spec := paramSpecs[key]
		if v < spec.Min || v > spec.Max {
			return g.invalid(id, "parameter %s=%g outside [%g, %g]", key, v, spec.Min, spec.Max)
		}
	}

	b := opts.Bounds
	scale := g.Scale(id, s, opts)
	for _, r := range []struct {
		axis string
		v    float64
	}{{"x", scale.X}, {"y", scale.Y}, {"z", scale.Z}} {
		if r.v < b.MinRadius || r.v > b.MaxRadius {
			return g.invalid(id, "radius %s=%g outside [%g, %g]", r.axis, r.v, b.MinRadius, b.MaxRadius)
		}
	}
	if v := model.Volume(n.Shape, scale); v < b.MinVolume || v > b.MaxVolume {
		return g.invalid(id, "volume %g outside [%g, %g]", v, b.MinVolume, b.MaxVolume)
	}

	if opts.EnsureCircleSection {
		switch n.Shape {
		case model.ShapeEllipsoid:
			if !nearlyEqual(scale.X, scale.Y) || !nearlyEqual(scale.Y, scale.Z) {
				return g.invalid(id, "ellipsoid radii must be equal, got %g %g %g", scale.X, scale.Y, scale.Z)
			}
		case model.ShapeCylinder:
			if !nearlyEqual(scale.Y, scale.Z) {
				return g.invalid(id, "cylinder cross-section must be circular, got y=%g z=%g", scale.Y, scale.Z)
			}
		}
	}
	return nil
}

func (g *Genotype) validateNeurons() error {
	refs := g.AllNeurons()
	total := len(refs)
	for i, ref := range refs {
		neuron := g.NeuronAt(ref)
		if _, err := nn.GetClass(neuron.Class); err != nil {
			return g.invalid(ref.Node, "neuron %d: %v", i, err)
		}
		for idx := range neuron.Inputs {
			if idx < 0 || idx >= total {
				return g.invalid(ref.Node, "neuron %d input %d out of range [0, %d)", i, idx, total)
			}
		}
	}
	return nil
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
