package genotype

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"fsgeno/internal/geom"
)

// State is the phenotypic state a node inherits from its ancestors and
// extends with its own modifiers and placement.
type State struct {
	Position  r3.Vec
	Direction r3.Vec
	Ingestion float64
	Friction  float64
	Size      float64
}

func rootState() State {
	return State{
		Direction: r3.Vec{X: 1},
		Ingestion: 1,
		Friction:  1,
		Size:      1,
	}
}

// applyModifiers returns the multipliers of a node given its parent's state.
func (g *Genotype) applyModifiers(id NodeID, parent State) State {
	s := parent
	for mod, count := range g.Nodes[id].Modifiers {
		f := math.Pow(g.Params.ModifierMultiplier, float64(count))
		switch mod {
		case ModIngestion:
			s.Ingestion *= f
		case ModFriction:
			s.Friction *= f
		case ModSize:
			s.Size *= f
		}
	}
	return s
}

// Multipliers derives the accumulated modifier multipliers of every node
// without placing any part.
func (g *Genotype) Multipliers() map[NodeID]State {
	out := make(map[NodeID]State, len(g.Nodes))
	for _, id := range g.PreOrder() {
		parent := rootState()
		if p := g.Nodes[id].Parent; p != NoNode {
			parent = out[p]
		}
		out[id] = g.applyModifiers(id, parent)
	}
	return out
}

// Scale returns the radii of node id given its state.
func (g *Genotype) Scale(id NodeID, s State, opts Options) r3.Vec {
	n := &g.Nodes[id]
	f := n.Param(ParamScale) * s.Size
	return r3.Vec{
		X: n.ParamWith(ParamScaleX, opts) * f,
		Y: n.ParamWith(ParamScaleY, opts) * f,
		Z: n.ParamWith(ParamScaleZ, opts) * f,
	}
}

// Solid returns the unplaced solid of node id given its state.
func (g *Genotype) Solid(id NodeID, s State, opts Options) geom.Solid {
	n := &g.Nodes[id]
	return geom.Solid{Shape: n.Shape, Scale: g.Scale(id, s, opts), Rotation: n.Rotation()}
}

// DeriveStates walks the tree from the root and places every node. The
// result is never cached: call it again after any change to the tree.
func DeriveStates(g *Genotype, opts Options) map[NodeID]State {
	out := make(map[NodeID]State, len(g.Nodes))
	for _, id := range g.PreOrder() {
		n := &g.Nodes[id]
		if n.Parent == NoNode {
			out[id] = g.applyModifiers(id, rootState())
			continue
		}
		parentState := out[n.Parent]
		s := g.applyModifiers(id, parentState)

		dir := geom.RotateEuler(parentState.Direction, n.Turn())
		if g.Params.TurnWithRotation {
			dir = geom.RotateEuler(dir, g.Nodes[n.Parent].Rotation())
		}
		s.Direction = dir

		distance := geom.SeparationDistance(
			g.Solid(n.Parent, parentState, opts),
			g.Solid(id, s, opts),
			dir,
			opts.Distance,
		)
		s.Position = r3.Add(parentState.Position, r3.Scale(distance, dir))
		out[id] = s
	}
	return out
}
