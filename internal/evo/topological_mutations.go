package evo

import (
	"fmt"
	"math"
	"math/rand"

	"fsgeno/internal/genotype"
)

// TopologicalMutationPolicy determines how many mutation operations are applied
// to each replicated child genotype.
type TopologicalMutationPolicy interface {
	Name() string
	MutationCount(g *genotype.Genotype, generation int, rng *rand.Rand) (int, error)
}

type ConstTopologicalMutations struct {
	Count int
}

func (ConstTopologicalMutations) Name() string {
	return "const"
}

func (p ConstTopologicalMutations) MutationCount(_ *genotype.Genotype, _ int, _ *rand.Rand) (int, error) {
	if p.Count <= 0 {
		return 0, fmt.Errorf("const topological mutation count must be > 0")
	}
	return p.Count, nil
}

// NCountLinearTopologicalMutations scales with the number of parts.
type NCountLinearTopologicalMutations struct {
	Multiplier float64
	MaxCount   int
}

func (NCountLinearTopologicalMutations) Name() string {
	return "ncount_linear"
}

func (p NCountLinearTopologicalMutations) MutationCount(g *genotype.Genotype, _ int, _ *rand.Rand) (int, error) {
	if p.Multiplier <= 0 {
		return 0, fmt.Errorf("linear multiplier must be > 0")
	}
	count := int(math.Round(float64(g.NodeCount()) * p.Multiplier))
	return clampCount(count, p.MaxCount), nil
}

type NCountExponentialTopologicalMutations struct {
	Power    float64
	MaxCount int
}

func (NCountExponentialTopologicalMutations) Name() string {
	return "ncount_exponential"
}

func (p NCountExponentialTopologicalMutations) MutationCount(g *genotype.Genotype, _ int, _ *rand.Rand) (int, error) {
	if p.Power <= 0 {
		return 0, fmt.Errorf("exponential power must be > 0")
	}
	count := int(math.Round(math.Pow(float64(max(1, g.NodeCount())), p.Power)))
	return clampCount(count, p.MaxCount), nil
}

func clampCount(count, maxCount int) int {
	if count < 1 {
		count = 1
	}
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}
	return count
}

// NewTopologicalMutationPolicy resolves a policy by name. count feeds the
// const policy; param is the multiplier or power of the ncount policies.
func NewTopologicalMutationPolicy(name string, count int, param float64, maxCount int) (TopologicalMutationPolicy, error) {
	switch name {
	case "", "const":
		if count <= 0 {
			return nil, fmt.Errorf("const topological mutation count must be > 0")
		}
		return ConstTopologicalMutations{Count: count}, nil
	case "ncount_linear":
		if param <= 0 {
			return nil, fmt.Errorf("linear multiplier must be > 0")
		}
		return NCountLinearTopologicalMutations{Multiplier: param, MaxCount: maxCount}, nil
	case "ncount_exponential":
		if param <= 0 {
			return nil, fmt.Errorf("exponential power must be > 0")
		}
		return NCountExponentialTopologicalMutations{Power: param, MaxCount: maxCount}, nil
	default:
		return nil, fmt.Errorf("unsupported mutation count policy: %q", name)
	}
}
