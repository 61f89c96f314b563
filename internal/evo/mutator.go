package evo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"fsgeno/internal/genotype"
)

// DefaultWeights are the relative probabilities of the built-in operators.
var DefaultWeights = map[string]float64{
	OpAddPart:               1,
	OpRemovePart:            1,
	OpChangePartType:        0.5,
	OpChangeJoint:           0.5,
	OpAddParam:              1,
	OpRemoveParam:           0.5,
	OpChangeParam:           2,
	OpChangeModifier:        1,
	OpAddNeuron:             1,
	OpRemoveNeuron:          0.5,
	OpChangeNeuroConnection: 1,
	OpAddNeuroConnection:    1,
	OpRemoveNeuroConnection: 0.5,
	OpChangeNeuroParam:      0.5,
}

type WeightedMutation struct {
	Operator Operator
	Weight   float64
}

// Mutator applies one weighted random operator per call. When the chosen
// operator fails it draws again, up to Attempts operators.
type Mutator struct {
	Env      *Env
	Policy   []WeightedMutation
	Attempts int
	Metrics  *Metrics
}

// NewMutator builds a policy from registered operator names. Names with a
// zero weight are skipped.
func NewMutator(env *Env, weights map[string]float64, metrics *Metrics) (*Mutator, error) {
	if err := env.check(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &Mutator{Env: env, Attempts: 3, Metrics: metrics}
	for _, name := range names {
		w := weights[name]
		if w < 0 {
			return nil, fmt.Errorf("negative weight for %s: %g", name, w)
		}
		if w == 0 {
			continue
		}
		op, err := NewOperator(name, env)
		if err != nil {
			return nil, err
		}
		m.Policy = append(m.Policy, WeightedMutation{Operator: op, Weight: w})
	}
	if len(m.Policy) == 0 {
		return nil, errors.New("mutation policy has no positive weights")
	}
	return m, nil
}

// chooseMutation draws a policy index by weight among the entries not yet
// tried. It returns -1 when nothing with a positive weight is left.
func (m *Mutator) chooseMutation(tried map[int]bool) int {
	total := 0.0
	for i, item := range m.Policy {
		if !tried[i] {
			total += item.Weight
		}
	}
	if total <= 0 {
		return -1
	}
	pick := m.Env.Rand.Float64() * total
	acc := 0.0
	last := -1
	for i, item := range m.Policy {
		if tried[i] || item.Weight <= 0 {
			continue
		}
		acc += item.Weight
		last = i
		if pick <= acc {
			return i
		}
	}
	return last
}

// Mutate returns a mutated copy of g and the name of the operator that
// produced it. A failed operator is not drawn again within the same call, so
// up to Attempts distinct operators are tried. On failure the name is that
// of the last operator tried. g is never modified.
func (m *Mutator) Mutate(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, string, error) {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var (
		last     error
		lastName string
	)
	tried := make(map[int]bool, attempts)
	for i := 0; i < attempts; i++ {
		idx := m.chooseMutation(tried)
		if idx < 0 {
			if i == 0 {
				return nil, "", errors.New("mutation policy has no positive weights")
			}
			break
		}
		tried[idx] = true
		op := m.Policy[idx].Operator
		start := time.Now()
		out, err := op.Apply(ctx, g)
		m.Metrics.Observe(op.Name(), err, time.Since(start))
		if err == nil {
			return out, op.Name(), nil
		}
		if !errors.Is(err, ErrOperatorFailed) {
			return nil, op.Name(), err
		}
		last, lastName = err, op.Name()
	}
	return nil, lastName, last
}
