package model

import (
	"errors"
	"fmt"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrModelClosed  = errors.New("model already closed")
	ErrInvalidModel = errors.New("invalid model")
)

// Model is a placed body with its neural network. Elements are appended
// through the Add methods and checked as a whole by Close.
type Model struct {
	VersionedRecord
	Parts       []Part        `json:"parts"`
	Joints      []Joint       `json:"joints"`
	Neurons     []Neuron      `json:"neurons"`
	Connections []Connection  `json:"connections"`
	Mapping     []SpanMapping `json:"mapping,omitempty"`

	closed bool
}

func New() *Model {
	return &Model{
		VersionedRecord: VersionedRecord{
			SchemaVersion: CurrentSchemaVersion,
			CodecVersion:  CurrentCodecVersion,
		},
	}
}

func (m *Model) AddPart(p Part) int {
	m.Parts = append(m.Parts, p)
	return len(m.Parts) - 1
}

func (m *Model) AddJoint(j Joint) int {
	m.Joints = append(m.Joints, j)
	return len(m.Joints) - 1
}

func (m *Model) AddNeuron(n Neuron) int {
	m.Neurons = append(m.Neurons, n)
	return len(m.Neurons) - 1
}

// AddConnection makes neuron to receive the output of neuron from.
func (m *Model) AddConnection(to, from int, weight float64) {
	m.Connections = append(m.Connections, Connection{From: from, To: to, Weight: weight})
}

func (m *Model) AddMapping(mp SpanMapping) {
	m.Mapping = append(m.Mapping, mp)
}

func (m *Model) Closed() bool {
	return m.closed
}

// Close finalizes the model and reports the first structural problem found.
func (m *Model) Close() error {
	if m.closed {
		return ErrModelClosed
	}
	if err := m.check(); err != nil {
		return err
	}
	m.closed = true
	return nil
}

func (m *Model) check() error {
	for i, p := range m.Parts {
		if !p.Shape.Valid() {
			return fmt.Errorf("%w: part %d has invalid shape %d", ErrInvalidModel, i, int(p.Shape))
		}
		if p.Scale.X <= 0 || p.Scale.Y <= 0 || p.Scale.Z <= 0 {
			return fmt.Errorf("%w: part %d has non-positive scale %v", ErrInvalidModel, i, p.Scale)
		}
	}
	for i, j := range m.Joints {
		if !m.validPart(j.From) || !m.validPart(j.To) {
			return fmt.Errorf("%w: joint %d references missing part (%d -> %d)", ErrInvalidModel, i, j.From, j.To)
		}
		if j.From == j.To {
			return fmt.Errorf("%w: joint %d connects part %d to itself", ErrInvalidModel, i, j.From)
		}
	}
	for i, n := range m.Neurons {
		if n.Class == "" {
			return fmt.Errorf("%w: neuron %d has no class", ErrInvalidModel, i)
		}
		if n.Part >= 0 && n.Joint >= 0 {
			return fmt.Errorf("%w: neuron %d attached to both part and joint", ErrInvalidModel, i)
		}
		if n.Part >= len(m.Parts) || n.Joint >= len(m.Joints) {
			return fmt.Errorf("%w: neuron %d attached to missing element", ErrInvalidModel, i)
		}
	}
	for i, c := range m.Connections {
		if !m.validNeuron(c.From) || !m.validNeuron(c.To) {
			return fmt.Errorf("%w: connection %d references missing neuron (%d -> %d)", ErrInvalidModel, i, c.From, c.To)
		}
	}
	return nil
}

func (m *Model) validPart(i int) bool {
	return i >= 0 && i < len(m.Parts)
}

func (m *Model) validNeuron(i int) bool {
	return i >= 0 && i < len(m.Neurons)
}
