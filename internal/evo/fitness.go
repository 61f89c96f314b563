package evo

import (
	"context"
	"fmt"
	"sort"

	"fsgeno/internal/genotype"
	"fsgeno/internal/model"
)

// Fitness scores one genotype; higher is better.
type Fitness interface {
	Name() string
	Evaluate(ctx context.Context, g *genotype.Genotype) (float64, error)
}

// VolumeFitness is the total volume of the built body.
type VolumeFitness struct {
	Options genotype.Options
}

func (VolumeFitness) Name() string { return "size" }

func (f VolumeFitness) Evaluate(ctx context.Context, g *genotype.Genotype) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m, err := genotype.BuildModel(g, f.Options)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, p := range m.Parts {
		total += model.Volume(p.Shape, p.Scale)
	}
	return total, nil
}

type NodeCountFitness struct{}

func (NodeCountFitness) Name() string { return "nodes" }

func (NodeCountFitness) Evaluate(_ context.Context, g *genotype.Genotype) (float64, error) {
	return float64(g.NodeCount()), nil
}

type NeuronCountFitness struct{}

func (NeuronCountFitness) Name() string { return "neurons" }

func (NeuronCountFitness) Evaluate(_ context.Context, g *genotype.Genotype) (float64, error) {
	return float64(g.NeuronCount()), nil
}

// NetworkFitness rewards connections whose weight is close to one: each
// connection contributes 1 - (w-1)^2.
type NetworkFitness struct{}

func (NetworkFitness) Name() string { return "network" }

func (NetworkFitness) Evaluate(_ context.Context, g *genotype.Genotype) (float64, error) {
	total := 0.0
	for _, ref := range g.AllNeurons() {
		for _, w := range g.NeuronAt(ref).Inputs {
			d := w - 1
			total += 1 - d*d
		}
	}
	return total, nil
}

// ZeroFitness scores everything equally, which turns selection into a
// random walk.
type ZeroFitness struct{}

func (ZeroFitness) Name() string { return "none" }

func (ZeroFitness) Evaluate(context.Context, *genotype.Genotype) (float64, error) {
	return 0, nil
}

var fitnessKinds = map[string]func(opts genotype.Options) Fitness{
	"size":    func(opts genotype.Options) Fitness { return VolumeFitness{Options: opts} },
	"nodes":   func(genotype.Options) Fitness { return NodeCountFitness{} },
	"neurons": func(genotype.Options) Fitness { return NeuronCountFitness{} },
	"network": func(genotype.Options) Fitness { return NetworkFitness{} },
	"none":    func(genotype.Options) Fitness { return ZeroFitness{} },
}

func NewFitness(kind string, opts genotype.Options) (Fitness, error) {
	build, ok := fitnessKinds[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported fitness kind: %q", kind)
	}
	return build(opts), nil
}

func FitnessKinds() []string {
	kinds := make([]string, 0, len(fitnessKinds))
	for k := range fitnessKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
