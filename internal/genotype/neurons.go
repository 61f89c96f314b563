package genotype

import (
	"errors"
	"fmt"
)

var ErrNoSuchNeuron = errors.New("no such neuron")

// NeuronRef locates a neuron by its node and its position inside the node.
type NeuronRef struct {
	Node  NodeID
	Local int
}

// AllNeurons flattens the neurons of the tree in pre-order. The position in
// the returned slice is the index other neurons use to refer to a neuron.
func (g *Genotype) AllNeurons() []NeuronRef {
	var out []NeuronRef
	for _, id := range g.PreOrder() {
		for i := range g.Nodes[id].Neurons {
			out = append(out, NeuronRef{Node: id, Local: i})
		}
	}
	return out
}

func (g *Genotype) NeuronAt(ref NeuronRef) *Neuron {
	return &g.Nodes[ref.Node].Neurons[ref.Local]
}

func (g *Genotype) NeuronCount() int {
	total := 0
	for _, id := range g.PreOrder() {
		total += len(g.Nodes[id].Neurons)
	}
	return total
}

// NeuronsBefore returns the flattened index the first neuron of id has, or
// would have if id carried any neurons.
func (g *Genotype) NeuronsBefore(id NodeID) int {
	count := 0
	for _, cur := range g.PreOrder() {
		if cur == id {
			return count
		}
		count += len(g.Nodes[cur].Neurons)
	}
	return count
}

func (g *Genotype) SubtreeNeuronCount(id NodeID) int {
	total := 0
	for _, cur := range g.Subtree(id) {
		total += len(g.Nodes[cur].Neurons)
	}
	return total
}

type ShiftDirection int

const (
	// ShiftLeft closes the gap left by count neurons removed at start.
	// Inputs pointing into the removed range are dropped.
	ShiftLeft ShiftDirection = iota
	// ShiftRight opens a gap for count neurons inserted at start.
	ShiftRight
)

// ShiftInputs renumbers the inputs of every neuron currently in the tree
// after count neurons are removed from, or inserted at, flattened index
// start. Call it before the structural change: neurons that are about to
// be removed are renumbered too, and neurons that are about to be inserted
// are not yet visited.
func (g *Genotype) ShiftInputs(start, count int, dir ShiftDirection) {
	if count <= 0 {
		return
	}
	for _, ref := range g.AllNeurons() {
		n := g.NeuronAt(ref)
		if len(n.Inputs) == 0 {
			continue
		}
		shifted := make(map[int]float64, len(n.Inputs))
		for idx, w := range n.Inputs {
			switch {
			case idx < start:
				shifted[idx] = w
			case dir == ShiftRight:
				shifted[idx+count] = w
			case idx >= start+count:
				shifted[idx-count] = w
			}
		}
		n.Inputs = shifted
	}
}

// InsertNeuron places n at position local of node id and renumbers every
// other neuron's inputs. n's own inputs must already use the new numbering.
func (g *Genotype) InsertNeuron(id NodeID, local int, n Neuron) error {
	node := &g.Nodes[id]
	if local < 0 || local > len(node.Neurons) {
		return fmt.Errorf("%w: node %d has %d neurons, cannot insert at %d", ErrNoSuchNeuron, id, len(node.Neurons), local)
	}
	g.ShiftInputs(g.NeuronsBefore(id)+local, 1, ShiftRight)
	node.Neurons = append(node.Neurons, Neuron{})
	copy(node.Neurons[local+1:], node.Neurons[local:])
	node.Neurons[local] = n
	return nil
}

// RemoveNeuron deletes neuron local of node id. Inputs that referred to it
// are dropped and later indices move down by one.
func (g *Genotype) RemoveNeuron(id NodeID, local int) error {
	node := &g.Nodes[id]
	if local < 0 || local >= len(node.Neurons) {
		return fmt.Errorf("%w: node %d neuron %d", ErrNoSuchNeuron, id, local)
	}
	g.ShiftInputs(g.NeuronsBefore(id)+local, 1, ShiftLeft)
	node.Neurons = append(node.Neurons[:local:local], node.Neurons[local+1:]...)
	return nil
}

// RemoveSubtree deletes a non-root node together with its descendants and
// their neurons, then compacts the arena.
func (g *Genotype) RemoveSubtree(id NodeID) error {
	if id == g.Root || g.Nodes[id].Parent == NoNode {
		return errors.New("cannot remove the root node")
	}
	g.ShiftInputs(g.NeuronsBefore(id), g.SubtreeNeuronCount(id), ShiftLeft)
	g.detach(id)
	g.Compact()
	return nil
}

// ReplaceSubtree swaps the non-root subtree at id for a copy of src's
// subtree at srcID, keeping the child slot. Neurons outside the swapped
// region keep valid inputs; copied neurons start without inputs.
func (g *Genotype) ReplaceSubtree(id NodeID, src *Genotype, srcID NodeID) error {
	parent := g.Nodes[id].Parent
	if id == g.Root || parent == NoNode {
		return errors.New("cannot replace the root node")
	}
	start := g.NeuronsBefore(id)
	slot := g.childSlot(id)

	g.ShiftInputs(start, g.SubtreeNeuronCount(id), ShiftLeft)
	g.detach(id)

	g.ShiftInputs(start, src.SubtreeNeuronCount(srcID), ShiftRight)
	newID := g.copySubtree(src, srcID)
	g.Nodes[newID].Parent = parent
	children := g.Nodes[parent].Children
	children = append(children, 0)
	copy(children[slot+1:], children[slot:])
	children[slot] = newID
	g.Nodes[parent].Children = children

	g.Compact()
	return nil
}
