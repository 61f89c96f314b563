package evo

import (
	"context"
	"fmt"
	"sort"

	"fsgeno/internal/genotype"
	"fsgeno/internal/nn"
)

// AddNeuron appends a neuron of a random class to a random node and wires
// it to existing neurons that produce output.
type AddNeuron struct {
	Env *Env
}

func (o *AddNeuron) Name() string { return OpAddNeuron }

func (o *AddNeuron) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		id, err := pickNode(o.Env, c, nil)
		if err != nil {
			return err
		}
		var classes []nn.Class
		for _, class := range nn.ListClasses() {
			if class.PrefLocation == nn.LocationJoint && id == c.Root {
				continue
			}
			classes = append(classes, class)
		}
		if len(classes) == 0 {
			return errNoCandidates
		}
		class := classes[o.Env.Rand.Intn(len(classes))]

		local := len(c.Node(id).Neurons)
		if err := c.InsertNeuron(id, local, genotype.Neuron{Class: class.Name}); err != nil {
			return err
		}
		self := c.NeuronsBefore(id) + local
		if !class.AcceptsInputs() {
			return nil
		}

		var sources []int
		for idx, ref := range c.AllNeurons() {
			if idx != self && producesOutput(c.NeuronAt(ref)) {
				sources = append(sources, idx)
			}
		}
		want := class.PrefInputs
		if want == nn.AnyInputs {
			want = o.Env.Rand.Intn(3)
		}
		want = min(want, len(sources))
		if want == 0 {
			return nil
		}
		neuron := c.NeuronAt(genotype.NeuronRef{Node: id, Local: local})
		neuron.Inputs = make(map[int]float64, want)
		for _, i := range o.Env.Rand.Perm(len(sources))[:want] {
			neuron.Inputs[sources[i]] = o.Env.uniform()
		}
		return nil
	})
}

// RemoveNeuron deletes a random neuron. Inputs referring to it are dropped
// and later indices shift down.
type RemoveNeuron struct {
	Env *Env
}

func (o *RemoveNeuron) Name() string { return OpRemoveNeuron }

func (o *RemoveNeuron) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		refs := c.AllNeurons()
		if len(refs) == 0 {
			return errNoCandidates
		}
		ref := refs[o.Env.Rand.Intn(len(refs))]
		return c.RemoveNeuron(ref.Node, ref.Local)
	})
}

// ChangeNeuroConnection perturbs the weight of a random input by up to
// +-strength.
type ChangeNeuroConnection struct {
	Env *Env
}

func (o *ChangeNeuroConnection) Name() string { return OpChangeNeuroConnection }

func (o *ChangeNeuroConnection) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		ref, err := pickNeuron(o.Env, c, func(n *genotype.Neuron) bool { return len(n.Inputs) > 0 })
		if err != nil {
			return err
		}
		n := c.NeuronAt(ref)
		inputs := sortedInputs(n)
		idx := inputs[o.Env.Rand.Intn(len(inputs))]
		delta := o.Env.uniform() * c.Params.ParamMutationStrength
		if delta == 0 {
			return errUnchanged
		}
		n.Inputs[idx] += delta
		return nil
	})
}

// AddNeuroConnection wires an output-producing neuron into a neuron that
// still accepts inputs.
type AddNeuroConnection struct {
	Env *Env
}

func (o *AddNeuroConnection) Name() string { return OpAddNeuroConnection }

func (o *AddNeuroConnection) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		refs := c.AllNeurons()
		var sources []int
		for idx, ref := range refs {
			if producesOutput(c.NeuronAt(ref)) {
				sources = append(sources, idx)
			}
		}
		free := func(n *genotype.Neuron) []int {
			var out []int
			for _, idx := range sources {
				if _, linked := n.Inputs[idx]; !linked {
					out = append(out, idx)
				}
			}
			return out
		}
		ref, err := pickNeuron(o.Env, c, func(n *genotype.Neuron) bool {
			class, err := nn.GetClass(n.Class)
			return err == nil && class.InputCapacity(len(n.Inputs)) && len(free(n)) > 0
		})
		if err != nil {
			return err
		}
		n := c.NeuronAt(ref)
		candidates := free(n)
		if n.Inputs == nil {
			n.Inputs = make(map[int]float64)
		}
		n.Inputs[candidates[o.Env.Rand.Intn(len(candidates))]] = o.Env.uniform()
		return nil
	})
}

// RemoveNeuroConnection drops a random input of a random neuron.
type RemoveNeuroConnection struct {
	Env *Env
}

func (o *RemoveNeuroConnection) Name() string { return OpRemoveNeuroConnection }

func (o *RemoveNeuroConnection) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		ref, err := pickNeuron(o.Env, c, func(n *genotype.Neuron) bool { return len(n.Inputs) > 0 })
		if err != nil {
			return err
		}
		n := c.NeuronAt(ref)
		inputs := sortedInputs(n)
		delete(n.Inputs, inputs[o.Env.Rand.Intn(len(inputs))])
		return nil
	})
}

// ChangeNeuroParam swaps the class of a random neuron for another class that
// fits its node, its current inputs and its current listeners.
type ChangeNeuroParam struct {
	Env *Env
}

func (o *ChangeNeuroParam) Name() string { return OpChangeNeuroParam }

func (o *ChangeNeuroParam) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return attempt(ctx, o.Env, o.Name(), g, func(c *genotype.Genotype) error {
		refs := c.AllNeurons()
		if len(refs) == 0 {
			return errNoCandidates
		}
		listened := make(map[int]bool)
		for _, ref := range refs {
			for idx := range c.NeuronAt(ref).Inputs {
				listened[idx] = true
			}
		}
		pick := o.Env.Rand.Intn(len(refs))
		ref := refs[pick]
		n := c.NeuronAt(ref)

		var classes []nn.Class
		for _, class := range nn.ListClasses() {
			switch {
			case class.Name == n.Class:
			case class.PrefLocation == nn.LocationJoint && ref.Node == c.Root:
			case class.PrefInputs != nn.AnyInputs && class.PrefInputs < len(n.Inputs):
			case !class.PrefOutput && listened[pick]:
			default:
				classes = append(classes, class)
			}
		}
		if len(classes) == 0 {
			return errUnchanged
		}
		n.Class = classes[o.Env.Rand.Intn(len(classes))].Name
		return nil
	})
}

// RemoveNeuronAt deletes one addressed neuron.
type RemoveNeuronAt struct {
	Node    genotype.NodeID
	Local   int
	Options genotype.Options
}

func (o RemoveNeuronAt) Name() string { return "remove_neuron_at" }

func (o RemoveNeuronAt) Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.Node < 0 || int(o.Node) >= len(g.Nodes) {
		return nil, fmt.Errorf("node index out of range: %d", o.Node)
	}
	c := g.Clone()
	if err := c.RemoveNeuron(o.Node, o.Local); err != nil {
		return nil, failed(o.Name(), err)
	}
	out, err := finish(c, o.Options)
	if err != nil {
		return nil, failed(o.Name(), err)
	}
	return out, nil
}

func pickNeuron(env *Env, g *genotype.Genotype, keep func(n *genotype.Neuron) bool) (genotype.NeuronRef, error) {
	var refs []genotype.NeuronRef
	for _, ref := range g.AllNeurons() {
		if keep(g.NeuronAt(ref)) {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return genotype.NeuronRef{}, errNoCandidates
	}
	return refs[env.Rand.Intn(len(refs))], nil
}

func producesOutput(n *genotype.Neuron) bool {
	class, err := nn.GetClass(n.Class)
	return err == nil && class.PrefOutput
}

func sortedInputs(n *genotype.Neuron) []int {
	out := make([]int, 0, len(n.Inputs))
	for idx := range n.Inputs {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
