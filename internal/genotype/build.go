package genotype

import (
	"fmt"
	"sort"

	"fsgeno/internal/model"
	"fsgeno/internal/nn"
)

// BuildModel places every node of g and emits the matching model: one part
// per node, one joint per parent/child edge, the neurons in flattened order
// and one connection per neuron input. The model is closed before return.
func BuildModel(g *Genotype, opts Options) (*model.Model, error) {
	states := DeriveStates(g, opts)
	m := model.New()
	partOf := make(map[NodeID]int, len(g.Nodes))
	var neurons []*Neuron

	for _, id := range g.PreOrder() {
		n := &g.Nodes[id]
		s := states[id]
		part := m.AddPart(model.Part{
			Shape:     n.Shape,
			Position:  s.Position,
			Rotation:  n.Rotation(),
			Scale:     g.Scale(id, s, opts),
			Friction:  n.Param(ParamFriction) * s.Friction,
			Ingestion: n.Param(ParamIngestion) * s.Ingestion,
		})
		partOf[id] = part

		joint := -1
		if n.Parent != NoNode {
			joint = m.AddJoint(model.Joint{
				From:      partOf[n.Parent],
				To:        part,
				Type:      n.JointType(),
				Stiffness: n.Param(ParamStiffness),
			})
		}

		for i := range n.Neurons {
			neuron := &n.Neurons[i]
			class, err := nn.GetClass(neuron.Class)
			if err != nil {
				return nil, fmt.Errorf("build node %d: %w", id, err)
			}
			attach := model.Neuron{Class: neuron.Class, Part: part, Joint: -1}
			if class.PrefLocation == nn.LocationJoint && joint >= 0 {
				attach.Part, attach.Joint = -1, joint
			}
			m.AddNeuron(attach)
			neurons = append(neurons, neuron)
		}

		m.AddMapping(model.SpanMapping{Start: n.Span.Start, Len: n.Span.Len, Part: part, Joint: joint})
	}

	for to, neuron := range neurons {
		indexes := make([]int, 0, len(neuron.Inputs))
		for idx := range neuron.Inputs {
			indexes = append(indexes, idx)
		}
		sort.Ints(indexes)
		for _, from := range indexes {
			m.AddConnection(to, from, neuron.Inputs[from])
		}
	}

	if err := m.Close(); err != nil {
		return nil, err
	}
	return m, nil
}
