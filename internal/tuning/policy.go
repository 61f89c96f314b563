package tuning

import (
	"fmt"
	"math"

	"fsgeno/internal/genotype"
)

// AttemptPolicy decides how many tuning attempts a genotype gets.
type AttemptPolicy interface {
	Name() string
	Attempts(baseAttempts, generation, totalGenerations int, g *genotype.Genotype) int
}

type FixedAttemptPolicy struct{}

func (FixedAttemptPolicy) Name() string { return "fixed" }

func (FixedAttemptPolicy) Attempts(baseAttempts, _generation, _totalGenerations int, _ *genotype.Genotype) int {
	if baseAttempts < 0 {
		return 0
	}
	return baseAttempts
}

type LinearDecayAttemptPolicy struct {
	MinAttempts int
}

func (LinearDecayAttemptPolicy) Name() string { return "linear_decay" }

func (p LinearDecayAttemptPolicy) Attempts(baseAttempts, generation, totalGenerations int, _ *genotype.Genotype) int {
	if baseAttempts <= 0 {
		return 0
	}
	if totalGenerations <= 0 {
		return baseAttempts
	}
	remaining := max(totalGenerations-generation, 1)
	attempts := (baseAttempts * remaining) / totalGenerations
	return max(attempts, p.MinAttempts, 0)
}

// TopologyScaledAttemptPolicy grows with the number of connections.
type TopologyScaledAttemptPolicy struct {
	Scale       float64
	MinAttempts int
	MaxAttempts int
}

func (TopologyScaledAttemptPolicy) Name() string { return "topology_scaled" }

func (p TopologyScaledAttemptPolicy) Attempts(baseAttempts, _generation, _totalGenerations int, g *genotype.Genotype) int {
	if baseAttempts <= 0 {
		return 0
	}
	scale := p.Scale
	if scale <= 0 {
		scale = 1.0
	}
	attempts := int(float64(baseAttempts) * scale * (1.0 + float64(ConnectionCount(g))/10.0))
	attempts = max(attempts, p.MinAttempts)
	if p.MaxAttempts > 0 && attempts > p.MaxAttempts {
		attempts = p.MaxAttempts
	}
	return attempts
}

// NSizeProportionalAttemptPolicy grows with the neuron count.
type NSizeProportionalAttemptPolicy struct {
	Power float64
}

func (NSizeProportionalAttemptPolicy) Name() string { return "nsize_proportional" }

func (p NSizeProportionalAttemptPolicy) Attempts(baseAttempts, _generation, _totalGenerations int, g *genotype.Genotype) int {
	if baseAttempts <= 0 {
		return 0
	}
	power := p.Power
	if power <= 0 {
		power = 1.0
	}
	scaled := satInt(int(math.Round(math.Pow(float64(g.NeuronCount()), power))), 0, 100)
	return baseAttempts + scaled
}

func AttemptPolicyFromConfig(name string, param float64) (AttemptPolicy, error) {
	switch name {
	case "", "fixed", "const":
		return FixedAttemptPolicy{}, nil
	case "linear_decay":
		return LinearDecayAttemptPolicy{MinAttempts: max(int(param), 1)}, nil
	case "topology_scaled":
		scale := param
		if scale <= 0 {
			scale = 1.0
		}
		return TopologyScaledAttemptPolicy{Scale: scale, MinAttempts: 1}, nil
	case "nsize_proportional":
		power := param
		if power <= 0 {
			power = 1.0
		}
		return NSizeProportionalAttemptPolicy{Power: power}, nil
	default:
		return nil, fmt.Errorf("unsupported tune attempt policy: %s", name)
	}
}

func satInt(v, minV, maxV int) int {
	return min(max(v, minV), maxV)
}
