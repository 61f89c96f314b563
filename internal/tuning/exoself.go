package tuning

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"fsgeno/internal/genotype"
)

// Exoself hill-climbs connection weights. Each attempt perturbs copies of
// one or more base genotypes for Steps steps and keeps the best candidate
// when it beats the current best by more than MinImprovement.
type Exoself struct {
	Rand               *rand.Rand
	Steps              int
	StepSize           float64
	PerturbationRange  float64
	AnnealingFactor    float64
	MinImprovement     float64
	GoalFitness        float64
	CandidateSelection string
	mu                 sync.Mutex
}

const (
	CandidateSelectBestSoFar = "best_so_far"
	CandidateSelectOriginal  = "original"
	CandidateSelectDynamicA  = "dynamic"
	CandidateSelectDynamic   = "dynamic_random"
	CandidateSelectRecent    = "recent"
	CandidateSelectRecentRnd = "recent_random"
	CandidateSelectAll       = "all"
	CandidateSelectAllRandom = "all_random"
)

func (e *Exoself) Name() string {
	return "exoself_hillclimb"
}

func (e *Exoself) validate(fitness FitnessFn) error {
	if e == nil || e.Rand == nil {
		return errors.New("random source is required")
	}
	if e.Steps <= 0 {
		return errors.New("steps must be > 0")
	}
	if e.StepSize <= 0 {
		return errors.New("step size must be > 0")
	}
	if e.PerturbationRange < 0 {
		return errors.New("perturbation range must be >= 0")
	}
	if e.AnnealingFactor < 0 {
		return errors.New("annealing factor must be >= 0")
	}
	if e.MinImprovement < 0 {
		return errors.New("min improvement must be >= 0")
	}
	if fitness == nil {
		return errors.New("fitness function is required")
	}
	return nil
}

// Tune returns a tuned copy of g; g itself is never modified. A genotype
// without connections is returned as a plain copy.
func (e *Exoself) Tune(ctx context.Context, g *genotype.Genotype, attempts int, fitness FitnessFn) (*genotype.Genotype, TuneReport, error) {
	report := TuneReport{AttemptsPlanned: max(attempts, 0)}
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}
	if g == nil {
		return nil, report, errors.New("genotype is required")
	}
	if attempts <= 0 {
		return g.Clone(), report, nil
	}
	if err := e.validate(fitness); err != nil {
		return nil, report, err
	}
	if ConnectionCount(g) == 0 {
		return g.Clone(), report, nil
	}
	perturbationRange := e.PerturbationRange
	if perturbationRange == 0 {
		perturbationRange = 1.0
	}
	annealingFactor := e.AnnealingFactor
	if annealingFactor == 0 {
		annealingFactor = 1.0
	}

	best := g.Clone()
	bestFitness, err := fitness(ctx, best)
	if err != nil {
		return nil, report, err
	}
	report.CandidateEvaluations++
	if e.GoalFitness > 0 && bestFitness >= e.GoalFitness {
		report.GoalReached = true
		return best, report, nil
	}
	recent := best.Clone()

	for a := 0; a < attempts; a++ {
		report.AttemptsExecuted++
		bases, err := e.candidateBases(best, g, recent)
		if err != nil {
			return nil, report, err
		}
		localBest := best
		localBestFitness := bestFitness
		for _, base := range bases {
			candidate, err := e.perturbCandidate(ctx, base, perturbationRange, annealingFactor)
			if err != nil {
				return nil, report, err
			}
			candidateFitness, err := fitness(ctx, candidate)
			if err != nil {
				return nil, report, err
			}
			report.CandidateEvaluations++
			if candidateFitness > localBestFitness+e.MinImprovement {
				localBest = candidate
				localBestFitness = candidateFitness
				report.AcceptedCandidates++
			} else {
				report.RejectedCandidates++
			}
		}
		recent = localBest.Clone()
		if localBestFitness > bestFitness+e.MinImprovement {
			best = localBest
			bestFitness = localBestFitness
		}
		if e.GoalFitness > 0 && bestFitness >= e.GoalFitness {
			report.GoalReached = true
			break
		}
	}
	return best, report, nil
}

func (e *Exoself) randIntn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Rand.Intn(n)
}

func (e *Exoself) randFloat64() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Rand.Float64()
}

func NormalizeCandidateSelectionName(name string) string {
	if name == "" {
		return CandidateSelectBestSoFar
	}
	return name
}

// ValidCandidateSelection reports whether name selects a known base pool.
func ValidCandidateSelection(name string) bool {
	switch NormalizeCandidateSelectionName(name) {
	case CandidateSelectBestSoFar, CandidateSelectOriginal, CandidateSelectDynamicA,
		CandidateSelectDynamic, CandidateSelectRecent, CandidateSelectRecentRnd,
		CandidateSelectAll, CandidateSelectAllRandom:
		return true
	}
	return false
}

func (e *Exoself) candidateBases(best, original, recent *genotype.Genotype) ([]*genotype.Genotype, error) {
	mode := NormalizeCandidateSelectionName(e.CandidateSelection)
	switch mode {
	case CandidateSelectDynamic:
		return e.randomSubset([]*genotype.Genotype{best, original}), nil
	case CandidateSelectRecentRnd:
		return e.randomSubset([]*genotype.Genotype{recent}), nil
	case CandidateSelectAllRandom:
		return e.randomSubset([]*genotype.Genotype{best, original, recent}), nil
	case CandidateSelectBestSoFar:
		return []*genotype.Genotype{best}, nil
	case CandidateSelectOriginal:
		return []*genotype.Genotype{original}, nil
	case CandidateSelectDynamicA:
		return []*genotype.Genotype{best, original}, nil
	case CandidateSelectRecent:
		return []*genotype.Genotype{recent}, nil
	case CandidateSelectAll:
		return []*genotype.Genotype{best, original, recent}, nil
	default:
		return nil, errors.New("unsupported candidate selection")
	}
}

// randomSubset keeps each base with probability 1/sqrt(n), and at least one.
func (e *Exoself) randomSubset(pool []*genotype.Genotype) []*genotype.Genotype {
	if len(pool) <= 1 {
		return pool
	}
	p := 1 / math.Sqrt(float64(len(pool)))
	chosen := make([]*genotype.Genotype, 0, len(pool))
	for _, g := range pool {
		if e.randFloat64() < p {
			chosen = append(chosen, g)
		}
	}
	if len(chosen) > 0 {
		return chosen
	}
	return []*genotype.Genotype{pool[e.randIntn(len(pool))]}
}

func (e *Exoself) perturbCandidate(ctx context.Context, base *genotype.Genotype, perturbationRange, annealingFactor float64) (*genotype.Genotype, error) {
	candidate := base.Clone()
	conns := connections(candidate)
	for s := 0; s < e.Steps; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := conns[e.randIntn(len(conns))]
		spread := e.StepSize * perturbationRange * math.Pow(annealingFactor, float64(s))
		delta := (e.randFloat64()*2 - 1) * spread
		candidate.NeuronAt(c.ref).Inputs[c.input] += delta
	}
	return candidate, nil
}
