package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"fsgeno/internal/genotype"
	"fsgeno/internal/model"
)

// Operator names.
const (
	OpAddPart               = "add_part"
	OpRemovePart            = "remove_part"
	OpChangePartType        = "change_part_type"
	OpChangeJoint           = "change_joint"
	OpAddParam              = "add_param"
	OpRemoveParam           = "remove_param"
	OpChangeParam           = "change_param"
	OpChangeModifier        = "change_modifier"
	OpAddNeuron             = "add_neuron"
	OpRemoveNeuron          = "remove_neuron"
	OpChangeNeuroConnection = "change_neuro_connection"
	OpAddNeuroConnection    = "add_neuro_connection"
	OpRemoveNeuroConnection = "remove_neuro_connection"
	OpChangeNeuroParam      = "change_neuro_param"
)

var errUnchanged = errors.New("edit left the genotype unchanged")

// maxTurn bounds the random growth turn given to new parts, in degrees.
const maxTurn = 90.0

// AddPart appends a new leaf with a random shape to a random node.
type AddPart struct {
	Env *Env
}

func (o *AddPart) Name() string { return OpAddPart }

func (o *AddPart) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		parent, err := pickNode(o.Env, c, nil)
		if err != nil {
			return err
		}
		shapes := model.Shapes()
		n := genotype.NewNode(shapes[o.Env.Rand.Intn(len(shapes))])
		if o.Env.Rand.Intn(2) == 0 {
			axis := []string{genotype.ParamTurnX, genotype.ParamTurnY, genotype.ParamTurnZ}[o.Env.Rand.Intn(3)]
			n.Params[axis] = math.Round(o.Env.uniform() * maxTurn)
		}
		id := c.AddChild(parent, n)
		return c.ValidateNode(id, o.Env.Options)
	})
}

// RemovePart deletes a random non-root leaf together with its neurons.
type RemovePart struct {
	Env *Env
}

func (o *RemovePart) Name() string { return OpRemovePart }

func (o *RemovePart) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		id, err := pickNode(o.Env, c, func(id genotype.NodeID) bool {
			return id != c.Root && c.IsLeaf(id)
		})
		if err != nil {
			return err
		}
		return c.RemoveSubtree(id)
	})
}

// ChangePartType gives a random node a different shape.
type ChangePartType struct {
	Env *Env
}

func (o *ChangePartType) Name() string { return OpChangePartType }

func (o *ChangePartType) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		id, err := pickNode(o.Env, c, nil)
		if err != nil {
			return err
		}
		n := c.Node(id)
		var others []model.Shape
		for _, s := range model.Shapes() {
			if s != n.Shape {
				others = append(others, s)
			}
		}
		n.Shape = others[o.Env.Rand.Intn(len(others))]
		return c.ValidateNode(id, o.Env.Options)
	})
}

// ChangeJoint switches the joint letter of a random non-root node.
type ChangeJoint struct {
	Env *Env
}

func (o *ChangeJoint) Name() string { return OpChangeJoint }

func (o *ChangeJoint) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		id, err := pickNode(o.Env, c, notRoot(c))
		if err != nil {
			return err
		}
		n := c.Node(id)
		var others []byte
		for _, j := range genotype.Joints {
			if j != n.Joint {
				others = append(others, j)
			}
		}
		n.Joint = others[o.Env.Rand.Intn(len(others))]
		return nil
	})
}

// AddParam sets a missing parameter of a random node to its default value.
type AddParam struct {
	Env *Env
}

func (o *AddParam) Name() string { return OpAddParam }

func (o *AddParam) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		candidates := func(id genotype.NodeID) []string {
			n := c.Node(id)
			var keys []string
			for _, key := range genotype.ParamKeys {
				if _, set := n.Params[key]; set {
					continue
				}
				if o.Env.Options.EnsureCircleSection && lockedScaleParam(n.Shape, key) {
					continue
				}
				keys = append(keys, key)
			}
			return keys
		}
		id, err := pickNode(o.Env, c, func(id genotype.NodeID) bool { return len(candidates(id)) > 0 })
		if err != nil {
			return err
		}
		keys := candidates(id)
		key := keys[o.Env.Rand.Intn(len(keys))]
		c.Node(id).Params[key] = o.Env.Options.ParamDefault(key)
		if genotype.IsScaleParam(key) {
			return c.ValidateNode(id, o.Env.Options)
		}
		return nil
	})
}

// lockedScaleParam reports radii that cannot be set alone without breaking
// the circular cross-section of the shape.
func lockedScaleParam(shape model.Shape, key string) bool {
	switch shape {
	case model.ShapeEllipsoid:
		return key == genotype.ParamScaleX || key == genotype.ParamScaleY || key == genotype.ParamScaleZ
	case model.ShapeCylinder:
		return key == genotype.ParamScaleY || key == genotype.ParamScaleZ
	}
	return false
}

// RemoveParam drops an explicit parameter of a random node.
type RemoveParam struct {
	Env *Env
}

func (o *RemoveParam) Name() string { return OpRemoveParam }

func (o *RemoveParam) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		id, err := pickNode(o.Env, c, func(id genotype.NodeID) bool { return len(c.Node(id).Params) > 0 })
		if err != nil {
			return err
		}
		keys := sortedParamKeys(c.Node(id))
		key := keys[o.Env.Rand.Intn(len(keys))]
		delete(c.Node(id).Params, key)
		if genotype.IsScaleParam(key) {
			return c.ValidateNode(id, o.Env.Options)
		}
		return nil
	})
}

// ChangeParam perturbs an explicit parameter of a random node. Angles move
// by up to strength*180 degrees; other values scale by up to +-strength.
// Values are clamped to the parameter range.
type ChangeParam struct {
	Env *Env
}

func (o *ChangeParam) Name() string { return OpChangeParam }

func (o *ChangeParam) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		id, err := pickNode(o.Env, c, func(id genotype.NodeID) bool { return len(c.Node(id).Params) > 0 })
		if err != nil {
			return err
		}
		n := c.Node(id)
		keys := sortedParamKeys(n)
		key := keys[o.Env.Rand.Intn(len(keys))]
		spec, _ := genotype.LookupParam(key)
		old := n.Params[key]
		strength := c.Params.ParamMutationStrength

		var v float64
		if spec.Angle {
			v = old + o.Env.uniform()*strength*180
		} else {
			v = old * (1 + o.Env.uniform()*strength)
		}
		v = math.Max(spec.Min, math.Min(spec.Max, v))
		if v == old {
			return errUnchanged
		}
		n.Params[key] = v
		if genotype.IsScaleParam(key) {
			return c.ValidateNode(id, o.Env.Options)
		}
		return nil
	})
}

// ChangeModifier adds or removes one modifier unit on a random node. The
// whole subtree inherits the change and is revalidated.
type ChangeModifier struct {
	Env *Env
}

func (o *ChangeModifier) Name() string { return OpChangeModifier }

func (o *ChangeModifier) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		id, err := pickNode(o.Env, c, nil)
		if err != nil {
			return err
		}
		n := c.Node(id)
		mod := genotype.Modifiers[o.Env.Rand.Intn(len(genotype.Modifiers))]
		delta := 1
		if o.Env.Rand.Intn(2) == 0 {
			delta = -1
		}
		n.Modifiers[mod] += delta
		if n.Modifiers[mod] == 0 {
			delete(n.Modifiers, mod)
		}
		return c.ValidateSubtree(id, o.Env.Options)
	})
}

// SetParamAt sets one parameter of one node to a fixed value.
type SetParamAt struct {
	Node    genotype.NodeID
	Key     string
	Value   float64
	Options genotype.Options
}

func (o SetParamAt) Name() string { return "set_param_at" }

func (o SetParamAt) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.Node < 0 || int(o.Node) >= len(g.Nodes) {
		return nil, fmt.Errorf("node index out of range: %d", o.Node)
	}
	if _, ok := genotype.LookupParam(o.Key); !ok {
		return nil, fmt.Errorf("unknown parameter key: %q", o.Key)
	}
	c := g.Clone()
	c.Node(o.Node).Params[o.Key] = o.Value
	if err := c.ValidateNode(o.Node, o.Options); err != nil {
		return nil, failed(o.Name(), err)
	}
	out, err := finish(c, o.Options)
	if err != nil {
		return nil, failed(o.Name(), err)
	}
	return out, nil
}

func sortedParamKeys(n *genotype.Node) []string {
	keys := make([]string, 0, len(n.Params))
	for k := range n.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
