package evo

import (
	"fmt"

	"fsgeno/internal/genotype"
)

// SpecieIdentifier assigns a stable species key to a genotype.
type SpecieIdentifier interface {
	Name() string
	Identify(g *genotype.Genotype) string
}

// TopologySpecieIdentifier groups genotypes by coarse counts.
type TopologySpecieIdentifier struct{}

func (TopologySpecieIdentifier) Name() string {
	return "topology"
}

func (TopologySpecieIdentifier) Identify(g *genotype.Genotype) string {
	s := genotype.ComputeSignature(g).Summary
	return fmt.Sprintf("p:%d-n:%d-c:%d-d:%d", s.Nodes, s.Neurons, s.Connections, s.MaxDepth)
}

// FingerprintSpecieIdentifier groups genotypes with the same shape, joint
// and neuron layout regardless of numeric parameters.
type FingerprintSpecieIdentifier struct{}

func (FingerprintSpecieIdentifier) Name() string {
	return "fingerprint"
}

func (FingerprintSpecieIdentifier) Identify(g *genotype.Genotype) string {
	return "fp:" + genotype.ComputeSignature(g).Fingerprint
}
