package evo

import (
	"fmt"
	"math"
)

const sizeProportionalEfficiency = 0.05

// FitnessPostprocessor adjusts fitness values after evaluation and before
// ranking/selection.
type FitnessPostprocessor interface {
	Name() string
	Process(scored []ScoredGenotype) []ScoredGenotype
}

type NoopFitnessPostprocessor struct{}

func (NoopFitnessPostprocessor) Name() string {
	return "none"
}

func (NoopFitnessPostprocessor) Process(scored []ScoredGenotype) []ScoredGenotype {
	return cloneScored(scored)
}

// SizeProportionalPostprocessor penalizes larger genotypes by part and
// neuron count.
type SizeProportionalPostprocessor struct{}

func (SizeProportionalPostprocessor) Name() string {
	return "size_proportional"
}

func (SizeProportionalPostprocessor) Process(scored []ScoredGenotype) []ScoredGenotype {
	out := cloneScored(scored)
	for i := range out {
		if out[i].Genotype == nil {
			continue
		}
		complexity := float64(out[i].Genotype.NodeCount() + out[i].Genotype.NeuronCount())
		if complexity < 1 {
			complexity = 1
		}
		out[i].Fitness = out[i].Fitness / math.Pow(complexity, sizeProportionalEfficiency)
	}
	return out
}

func NewFitnessPostprocessor(name string) (FitnessPostprocessor, error) {
	switch name {
	case "", "none":
		return NoopFitnessPostprocessor{}, nil
	case "size_proportional":
		return SizeProportionalPostprocessor{}, nil
	default:
		return nil, fmt.Errorf("unsupported fitness postprocessor: %q", name)
	}
}

func cloneScored(scored []ScoredGenotype) []ScoredGenotype {
	out := make([]ScoredGenotype, len(scored))
	copy(out, scored)
	return out
}
