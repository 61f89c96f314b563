package genotype

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"fsgeno/internal/model"
	"fsgeno/internal/storage"
)

func TestDeriveStatesPlacesTouchingSpheres(t *testing.T) {
	g := mustParse(t, "1.1:EE")
	opts := DefaultOptions()

	states := DeriveStates(g, opts)
	child := g.Node(g.Root).Children[0]

	assert.Equal(t, 0.0, r3.Norm(states[g.Root].Position))
	assert.InDelta(t, 1.0, states[child].Position.X, 2*opts.Distance.Tolerance)
	assert.InDelta(t, 0.0, states[child].Position.Y, 1e-9)
}

func TestDeriveStatesTurnsGrowthDirection(t *testing.T) {
	g := mustParse(t, "1.1:EE{tz=90}")
	opts := DefaultOptions()

	child := g.Node(g.Root).Children[0]
	pos := DeriveStates(g, opts)[child].Position
	assert.InDelta(t, 0.0, pos.X, 1e-6)
	assert.InDelta(t, 1.0, pos.Y, 2*opts.Distance.Tolerance)
}

func TestDeriveStatesAccumulatesModifiers(t *testing.T) {
	g := mustParse(t, "1.1:SfEiSE")

	states := DeriveStates(g, DefaultOptions())
	root, child := g.Root, g.Node(g.Root).Children[0]

	assert.InDelta(t, 1.1, states[root].Size, 1e-12)
	assert.InDelta(t, 1/1.1, states[root].Friction, 1e-12)
	assert.InDelta(t, 1.21, states[child].Size, 1e-12)
	assert.InDelta(t, 1/1.1, states[child].Friction, 1e-12)
	assert.InDelta(t, 1/1.1, states[child].Ingestion, 1e-12)
	assert.InDelta(t, 0.5*1.21, g.Scale(child, states[child], DefaultOptions()).X, 1e-12)

	multipliers := g.Multipliers()
	assert.InDelta(t, states[child].Size, multipliers[child].Size, 1e-12)
}

func TestBuildModelCountsAndAttachments(t *testing.T) {
	g := mustParse(t, "1.1:E[N](bE[G]^C[|_1:0.5])")

	m, err := BuildModel(g, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, m.Closed())

	require.Len(t, m.Parts, 3)
	require.Len(t, m.Joints, 2)
	assert.Equal(t, model.JointHingeX, m.Joints[0].Type)
	assert.Equal(t, model.JointFixed, m.Joints[1].Type)
	assert.Equal(t, 0, m.Joints[0].From)
	assert.Equal(t, 1, m.Joints[0].To)

	require.Len(t, m.Neurons, 3)
	assert.Equal(t, model.Neuron{Class: "N", Part: 0, Joint: -1}, m.Neurons[0])
	assert.Equal(t, model.Neuron{Class: "G", Part: -1, Joint: 0}, m.Neurons[1])
	assert.Equal(t, model.Neuron{Class: "|", Part: -1, Joint: 1}, m.Neurons[2])

	require.Len(t, m.Connections, 1)
	assert.Equal(t, model.Connection{From: 1, To: 2, Weight: 0.5}, m.Connections[0])

	require.Len(t, m.Mapping, 3)
	assert.Equal(t, 4, m.Mapping[0].Start)
	assert.Equal(t, -1, m.Mapping[0].Joint)
}

func TestBuildModelPartProperties(t *testing.T) {
	g := mustParse(t, "1.1:FE{f=0.5;i=0.2;rz=90}C{st=2}")

	m, err := BuildModel(g, DefaultOptions())
	require.NoError(t, err)

	root := m.Parts[0]
	assert.InDelta(t, 0.55, root.Friction, 1e-12)
	assert.InDelta(t, 0.2, root.Ingestion, 1e-12)
	assert.InDelta(t, math.Pi/2, root.Rotation.Z, 1e-12)
	assert.Equal(t, model.ShapeCuboid, m.Parts[1].Shape)
	assert.InDelta(t, 0.4*1.1, m.Parts[1].Friction, 1e-12)
	assert.Equal(t, 2.0, m.Joints[0].Stiffness)
}

func TestBuildModelUsesConfiguredDefaultRadius(t *testing.T) {
	opts := DefaultOptions()
	opts.Bounds.DefaultRadius = 1.0

	m, err := BuildModel(mustParse(t, "1.1:EE"), opts)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, m.Parts[0].Scale)
	assert.InDelta(t, 2.0, m.Parts[1].Position.X, 4*opts.Distance.Tolerance)

	m, err = BuildModel(mustParse(t, "1.1:E{x=0.3;y=0.3;z=0.3}"), opts)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 0.3, Y: 0.3, Z: 0.3}, m.Parts[0].Scale)
}

func TestBuildModelStructuralInvariant(t *testing.T) {
	for _, text := range []string{
		"1.1:E",
		"1.1:EEE",
		"1.1:E(E(C^R)^E[N](E^E))",
	} {
		g := mustParse(t, text)
		m, err := BuildModel(g, DefaultOptions())
		require.NoError(t, err)
		assert.Len(t, m.Parts, g.NodeCount(), text)
		assert.Len(t, m.Joints, g.NodeCount()-1, text)
	}
}

func TestBuildModelRejectsUnknownClass(t *testing.T) {
	g := mustParse(t, "1.1:E[Nope]")
	_, err := BuildModel(g, DefaultOptions())
	assert.Error(t, err)
}

func TestComputeSignatureIgnoresParameterValues(t *testing.T) {
	a := ComputeSignature(mustParse(t, "1.1:E[N](E^bC{x=0.7})"))
	b := ComputeSignature(mustParse(t, "1.1:E[N](E^bC{x=0.6})"))
	c := ComputeSignature(mustParse(t, "1.1:E[N](E^bR{x=0.7})"))

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
	assert.Equal(t, 3, a.Summary.Nodes)
	assert.Equal(t, 1, a.Summary.MaxDepth)
	assert.Equal(t, 1, a.Summary.Shapes["cuboid"])
	assert.Equal(t, 1, a.Summary.Joints["hinge_x"])
}

func TestSpeciateByFingerprint(t *testing.T) {
	species := SpeciateByFingerprint([]*Genotype{
		mustParse(t, "1.1:EE"),
		mustParse(t, "1.1:EE{x=0.6;y=0.6;z=0.6}"),
		mustParse(t, "1.1:EC"),
	})
	assert.Len(t, species, 2)
}

func TestSaveAndLoadGenotype(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	g := mustParse(t, "1.1:E[N]E[N_0]")
	record, err := SaveGenotype(ctx, store, "", g)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, g.String(), record.Text)
	assert.WithinDuration(t, time.Now(), record.CreatedAt, time.Minute)

	loaded, stored, err := LoadGenotype(ctx, store, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Fingerprint, stored.Fingerprint)
	assert.Equal(t, g.String(), loaded.String())

	_, _, err = LoadGenotype(ctx, store, "missing")
	assert.ErrorIs(t, err, ErrGenotypeNotFound)
}
