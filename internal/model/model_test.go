package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitPart(shape Shape) Part {
	return Part{Shape: shape, Scale: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Friction: 0.4, Ingestion: 0.5}
}

func TestModelCloseAcceptsConnectedBody(t *testing.T) {
	m := New()
	p0 := m.AddPart(unitPart(ShapeCuboid))
	p1 := m.AddPart(unitPart(ShapeEllipsoid))
	j := m.AddJoint(Joint{From: p0, To: p1, Type: JointHingeX, Stiffness: 1})
	n0 := m.AddNeuron(Neuron{Class: "N", Part: p0, Joint: -1})
	n1 := m.AddNeuron(Neuron{Class: "|", Part: -1, Joint: j})
	m.AddConnection(n1, n0, 0.5)

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
	assert.ErrorIs(t, m.Close(), ErrModelClosed)
}

func TestModelCloseRejectsBrokenReferences(t *testing.T) {
	cases := map[string]func(m *Model){
		"joint to missing part": func(m *Model) {
			m.AddPart(unitPart(ShapeCuboid))
			m.AddJoint(Joint{From: 0, To: 3})
		},
		"self joint": func(m *Model) {
			m.AddPart(unitPart(ShapeCuboid))
			m.AddJoint(Joint{From: 0, To: 0})
		},
		"connection to missing neuron": func(m *Model) {
			m.AddPart(unitPart(ShapeCuboid))
			m.AddNeuron(Neuron{Class: "N", Part: 0, Joint: -1})
			m.AddConnection(0, 1, 1)
		},
		"zero scale": func(m *Model) {
			m.AddPart(Part{Shape: ShapeCylinder})
		},
		"double attachment": func(m *Model) {
			m.AddPart(unitPart(ShapeCuboid))
			m.AddPart(unitPart(ShapeCuboid))
			m.AddJoint(Joint{From: 0, To: 1})
			m.AddNeuron(Neuron{Class: "N", Part: 0, Joint: 0})
		},
	}
	for name, build := range cases {
		build := build
		t.Run(name, func(t *testing.T) {
			m := New()
			build(m)
			err := m.Close()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidModel), "unexpected error: %v", err)
		})
	}
}

func TestVolumeMultipliers(t *testing.T) {
	half := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	assert.InDelta(t, 1.0, Volume(ShapeCuboid, half), 1e-12)
	assert.InDelta(t, math.Pi/4, Volume(ShapeCylinder, half), 1e-12)
	assert.InDelta(t, math.Pi/6, Volume(ShapeEllipsoid, half), 1e-12)
}

func TestShapeTextEncoding(t *testing.T) {
	data, err := json.Marshal(Part{Shape: ShapeCylinder, Scale: r3.Vec{X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)

	var decoded Part
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ShapeCylinder, decoded.Shape)

	var bad Shape
	assert.Error(t, bad.UnmarshalText([]byte("torus")))
}
