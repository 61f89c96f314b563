package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"fsgeno/internal/genotype"
)

// ScoredGenotype is a population member with its fitness.
type ScoredGenotype struct {
	ID       string
	Genotype *genotype.Genotype
	Fitness  float64
}

// RankScored sorts by descending fitness, then ID.
func RankScored(scored []ScoredGenotype) []ScoredGenotype {
	out := cloneScored(scored)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Fitness != out[j].Fitness {
			return out[i].Fitness > out[j].Fitness
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Selector chooses parents from ranked genotypes for replication.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []ScoredGenotype, eliteCount int) (ScoredGenotype, error)
}

// EliteSelector picks uniformly from the top elite set.
type EliteSelector struct{}

func (EliteSelector) Name() string {
	return "elite"
}

func (EliteSelector) PickParent(rng *rand.Rand, ranked []ScoredGenotype, eliteCount int) (ScoredGenotype, error) {
	if err := checkSelection(rng, ranked, eliteCount); err != nil {
		return ScoredGenotype{}, err
	}
	return ranked[rng.Intn(eliteCount)], nil
}

// TournamentSelector samples candidates and picks the best fitness among them.
type TournamentSelector struct {
	PoolSize       int
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []ScoredGenotype, eliteCount int) (ScoredGenotype, error) {
	if err := checkSelection(rng, ranked, eliteCount); err != nil {
		return ScoredGenotype{}, err
	}
	pool := ranked[:poolSize(s.PoolSize, eliteCount, len(ranked))]
	return tournament(rng, pool, s.TournamentSize), nil
}

// SpeciesTournamentSelector first samples a species uniformly and then runs
// tournament selection inside that species.
type SpeciesTournamentSelector struct {
	Identifier     SpecieIdentifier
	PoolSize       int
	TournamentSize int
}

func (SpeciesTournamentSelector) Name() string {
	return "species_tournament"
}

func (s SpeciesTournamentSelector) PickParent(rng *rand.Rand, ranked []ScoredGenotype, eliteCount int) (ScoredGenotype, error) {
	if err := checkSelection(rng, ranked, eliteCount); err != nil {
		return ScoredGenotype{}, err
	}
	if s.Identifier == nil {
		return ScoredGenotype{}, fmt.Errorf("species identifier is required")
	}
	pool := ranked[:poolSize(s.PoolSize, eliteCount, len(ranked))]

	bySpecies := make(map[string][]ScoredGenotype, len(pool))
	for _, scored := range pool {
		key := s.Identifier.Identify(scored.Genotype)
		bySpecies[key] = append(bySpecies[key], scored)
	}
	speciesKeys := make([]string, 0, len(bySpecies))
	for key := range bySpecies {
		speciesKeys = append(speciesKeys, key)
	}
	sort.Strings(speciesKeys)
	chosen := speciesKeys[rng.Intn(len(speciesKeys))]
	return tournament(rng, bySpecies[chosen], s.TournamentSize), nil
}

func checkSelection(rng *rand.Rand, ranked []ScoredGenotype, eliteCount int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return fmt.Errorf("invalid elite count: %d", eliteCount)
	}
	return nil
}

func poolSize(requested, eliteCount, total int) int {
	size := requested
	if size <= 0 {
		size = eliteCount * 2
	}
	if size < eliteCount {
		size = eliteCount
	}
	if size > total {
		size = total
	}
	return size
}

func tournament(rng *rand.Rand, candidates []ScoredGenotype, size int) ScoredGenotype {
	if size <= 0 {
		size = 3
	}
	if size > len(candidates) {
		size = len(candidates)
	}
	best := candidates[rng.Intn(len(candidates))]
	for i := 1; i < size; i++ {
		candidate := candidates[rng.Intn(len(candidates))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best
}
