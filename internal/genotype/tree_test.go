package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsgeno/internal/model"
)

func TestRemoveNeuronShiftsLaterInputs(t *testing.T) {
	g := mustParse(t, "1.1:E[N]E[N_0]")

	require.NoError(t, g.RemoveNeuron(g.Root, 0))

	child := g.Node(g.Node(g.Root).Children[0])
	require.Len(t, child.Neurons, 1)
	assert.Empty(t, child.Neurons[0].Inputs)
	assert.Equal(t, "1.1,0,0.4:EE[N]", g.String())
}

func TestRemoveNeuronDecrementsHigherIndices(t *testing.T) {
	g := mustParse(t, "1.1:E[N;N]E[N_0;N_1:0.5_2]")

	require.NoError(t, g.RemoveNeuron(g.Root, 0))

	child := g.Node(g.Node(g.Root).Children[0])
	assert.Empty(t, child.Neurons[0].Inputs)
	assert.Equal(t, map[int]float64{0: 0.5, 1: 1}, child.Neurons[1].Inputs)
	assert.NoError(t, g.Validate(DefaultOptions()))
}

func TestRemoveNeuronRejectsBadIndex(t *testing.T) {
	g := mustParse(t, "1.1:E[N]")
	assert.ErrorIs(t, g.RemoveNeuron(g.Root, 3), ErrNoSuchNeuron)
	assert.ErrorIs(t, g.InsertNeuron(g.Root, 5, Neuron{Class: "N"}), ErrNoSuchNeuron)
}

func TestInsertNeuronShiftsInputs(t *testing.T) {
	g := mustParse(t, "1.1:E[N]E[N_0]")

	require.NoError(t, g.InsertNeuron(g.Root, 0, Neuron{Class: "*"}))
	assert.Equal(t, "1.1,0,0.4:E[*;N]E[N_1]", g.String())
}

func TestShiftInputs(t *testing.T) {
	g := mustParse(t, "1.1:E[N_0_1_2_3]")

	g.ShiftInputs(1, 2, ShiftLeft)
	assert.Equal(t, map[int]float64{0: 1, 1: 1}, g.Node(g.Root).Neurons[0].Inputs)

	g.ShiftInputs(1, 3, ShiftRight)
	assert.Equal(t, map[int]float64{0: 1, 4: 1}, g.Node(g.Root).Neurons[0].Inputs)

	g.ShiftInputs(0, 0, ShiftLeft)
	assert.Equal(t, map[int]float64{0: 1, 4: 1}, g.Node(g.Root).Neurons[0].Inputs)
}

func TestNeuronsBeforeFollowsPreOrder(t *testing.T) {
	g := mustParse(t, "1.1:E[N](E[N;N](E[N])^E[N])")

	order := g.PreOrder()
	var before []int
	for _, id := range order {
		before = append(before, g.NeuronsBefore(id))
	}
	assert.Equal(t, []int{0, 1, 3, 4}, before)
	assert.Equal(t, 3, g.SubtreeNeuronCount(order[1]))

	refs := g.AllNeurons()
	require.Len(t, refs, 5)
	assert.Equal(t, NeuronRef{Node: order[1], Local: 1}, refs[2])
}

func TestRemoveSubtree(t *testing.T) {
	g := mustParse(t, "1.1:E[N](E[N_0](E[N_1])^E[N_2;N_0])")

	require.NoError(t, g.RemoveSubtree(g.Node(g.Root).Children[0]))

	assert.Equal(t, "1.1,0,0.4:E[N]E[N;N_0]", g.String())
	assert.Equal(t, 2, len(g.Nodes))
	assert.Equal(t, NodeID(0), g.Root)
	assert.NoError(t, g.Validate(DefaultOptions()))
}

func TestRemoveSubtreeRejectsRoot(t *testing.T) {
	g := mustParse(t, "1.1:EE")
	assert.Error(t, g.RemoveSubtree(g.Root))
}

func TestReplaceSubtreeKeepsSlotAndShiftsInputs(t *testing.T) {
	g := mustParse(t, "1.1:E[N](E[N]^E[N_0;N_2])")
	src := mustParse(t, "1.1:C[N;N_0]R")

	require.NoError(t, g.ReplaceSubtree(g.Node(g.Root).Children[0], src, src.Root))

	assert.Equal(t, "1.1,0,0.4:E[N](C[N;N]R^E[N_0;N_3])", g.String())
	assert.Equal(t, 4, g.NodeCount())
	assert.Len(t, g.Nodes, 4)
	assert.NoError(t, g.Validate(DefaultOptions()))
	assert.Equal(t, "1.1,0,0.4:C[N;N_0]R", src.String(), "source must stay untouched")
}

func TestCompactRenumbersInPreOrder(t *testing.T) {
	g := mustParse(t, "1.1:EE")
	n := newNode(NoNode)
	n.Shape = model.ShapeCuboid
	id := g.AddChild(g.Root, n)
	require.Equal(t, NodeID(2), id)

	leaf := g.AddChild(id, newNode(NoNode))
	g.Nodes[leaf].Shape = model.ShapeCylinder
	g.detach(1)
	g.Compact()

	assert.Equal(t, "1.1,0,0.4:ECR", g.String())
	for i, cur := range g.PreOrder() {
		assert.Equal(t, NodeID(i), cur)
	}
	assert.Equal(t, NodeID(1), g.Nodes[2].Parent)
}

func TestCloneIsDeep(t *testing.T) {
	g := mustParse(t, "1.1:E[N_0]{x=0.6;y=0.6;z=0.6}E")
	c := g.Clone()

	c.Node(c.Root).Params[ParamScaleX] = 1
	c.Node(c.Root).Neurons[0].Inputs[0] = 3
	c.Node(c.Root).Modifiers[ModSize] = 2
	c.Nodes[1].Children = append(c.Nodes[1].Children, 0)

	assert.Equal(t, "1.1,0,0.4:E[N_0]{x=0.6;y=0.6;z=0.6}E", g.String())
	assert.Empty(t, g.Nodes[1].Children)
}
