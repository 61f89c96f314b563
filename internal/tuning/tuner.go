// Package tuning refines the connection weights of a genotype by local
// search, leaving its body and network topology untouched.
package tuning

import (
	"context"
	"sort"

	"fsgeno/internal/genotype"
)

type FitnessFn func(ctx context.Context, g *genotype.Genotype) (float64, error)

type TuneReport struct {
	AttemptsPlanned      int  `json:"attempts_planned"`
	AttemptsExecuted     int  `json:"attempts_executed"`
	CandidateEvaluations int  `json:"candidate_evaluations"`
	AcceptedCandidates   int  `json:"accepted_candidates"`
	RejectedCandidates   int  `json:"rejected_candidates"`
	GoalReached          bool `json:"goal_reached"`
}

type Tuner interface {
	Name() string
	Tune(ctx context.Context, g *genotype.Genotype, attempts int, fitness FitnessFn) (*genotype.Genotype, TuneReport, error)
}

// connection addresses one weighted input of one neuron.
type connection struct {
	ref   genotype.NeuronRef
	input int
}

// connections lists every neuron input of g in flattened neuron order, then
// by source index.
func connections(g *genotype.Genotype) []connection {
	var out []connection
	for _, ref := range g.AllNeurons() {
		n := g.NeuronAt(ref)
		inputs := make([]int, 0, len(n.Inputs))
		for idx := range n.Inputs {
			inputs = append(inputs, idx)
		}
		sort.Ints(inputs)
		for _, idx := range inputs {
			out = append(out, connection{ref: ref, input: idx})
		}
	}
	return out
}

// ConnectionCount is the number of weighted neuron inputs in g.
func ConnectionCount(g *genotype.Genotype) int {
	total := 0
	for _, ref := range g.AllNeurons() {
		total += len(g.NeuronAt(ref).Inputs)
	}
	return total
}
