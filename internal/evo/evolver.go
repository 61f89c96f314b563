package evo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fsgeno/internal/genotype"
	"fsgeno/internal/model"
	"fsgeno/internal/tuning"
)

type EvolverConfig struct {
	Mutator              *Mutator
	Crossover            *Crossover
	CrossoverRate        float64
	Fitness              Fitness
	Selector             Selector
	Postprocessor        FitnessPostprocessor
	Identifier           SpecieIdentifier
	TopologicalMutations TopologicalMutationPolicy
	Tuner                tuning.Tuner
	TuneAttempts         int
	AttemptPolicy        tuning.AttemptPolicy
	PopulationSize       int
	EliteCount           int
	Generations          int
	Workers              int
	Rand                 *rand.Rand
	Logger               *slog.Logger
}

type GenerationStats struct {
	Generation   int     `json:"generation" csv:"generation"`
	BestFitness  float64 `json:"best_fitness" csv:"best_fitness"`
	MeanFitness  float64 `json:"mean_fitness" csv:"mean_fitness"`
	MinFitness   float64 `json:"min_fitness" csv:"min_fitness"`
	SpeciesCount int     `json:"species_count" csv:"species_count"`
	MeanNodes    float64 `json:"mean_nodes" csv:"mean_nodes"`
	MeanNeurons  float64 `json:"mean_neurons" csv:"mean_neurons"`
}

type RunResult struct {
	Generations     []GenerationStats
	FinalPopulation []ScoredGenotype
	Lineage         []model.LineageRecord
}

// Evolver runs a generational loop: evaluate, rank, keep elites, and fill
// the rest of the population with mutated (and optionally crossed) children.
type Evolver struct {
	cfg EvolverConfig
	log *slog.Logger
}

func NewEvolver(cfg EvolverConfig) (*Evolver, error) {
	if cfg.Mutator == nil {
		return nil, fmt.Errorf("mutator is required")
	}
	if cfg.Fitness == nil {
		return nil, fmt.Errorf("fitness is required")
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.EliteCount <= 0 || cfg.EliteCount > cfg.PopulationSize {
		return nil, fmt.Errorf("elite count must be in [1, population size]")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if cfg.CrossoverRate < 0 || cfg.CrossoverRate > 1 {
		return nil, fmt.Errorf("crossover rate must be in [0, 1]")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = EliteSelector{}
	}
	if cfg.Postprocessor == nil {
		cfg.Postprocessor = NoopFitnessPostprocessor{}
	}
	if cfg.Identifier == nil {
		cfg.Identifier = FingerprintSpecieIdentifier{}
	}
	if cfg.TopologicalMutations == nil {
		cfg.TopologicalMutations = ConstTopologicalMutations{Count: 1}
	}
	if cfg.TuneAttempts < 0 {
		return nil, fmt.Errorf("tune attempts must be >= 0")
	}
	if cfg.AttemptPolicy == nil {
		cfg.AttemptPolicy = tuning.FixedAttemptPolicy{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evolver{cfg: cfg, log: logger}, nil
}

// Run evolves a population seeded by cycling through initial.
func (e *Evolver) Run(ctx context.Context, initial []*genotype.Genotype) (RunResult, error) {
	if len(initial) == 0 {
		return RunResult{}, fmt.Errorf("initial population is empty")
	}

	population := make([]ScoredGenotype, 0, e.cfg.PopulationSize)
	lineage := make([]model.LineageRecord, 0, e.cfg.PopulationSize*(e.cfg.Generations+1))
	for i := 0; i < e.cfg.PopulationSize; i++ {
		seed := ScoredGenotype{ID: uuid.NewString(), Genotype: initial[i%len(initial)].Clone()}
		population = append(population, seed)
		lineage = append(lineage, lineageRecord(seed, nil, 0, "seed"))
	}

	stats := make([]GenerationStats, 0, e.cfg.Generations)
	var ranked []ScoredGenotype
	for gen := 0; gen < e.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		scored, err := e.evaluate(ctx, population, gen)
		if err != nil {
			return RunResult{}, err
		}
		ranked = RankScored(e.cfg.Postprocessor.Process(scored))

		summary := e.summarize(ranked, gen+1)
		stats = append(stats, summary)
		e.log.Info("generation complete",
			"generation", summary.Generation,
			"best", summary.BestFitness,
			"mean", summary.MeanFitness,
			"species", summary.SpeciesCount,
		)

		if gen == e.cfg.Generations-1 {
			break
		}
		var generationLineage []model.LineageRecord
		population, generationLineage, err = e.nextGeneration(ctx, ranked, gen+1)
		if err != nil {
			return RunResult{}, err
		}
		lineage = append(lineage, generationLineage...)
	}

	return RunResult{
		Generations:     stats,
		FinalPopulation: ranked,
		Lineage:         lineage,
	}, nil
}

// evaluate scores every genotype. With a tuner configured, connection weights
// are refined first and the tuned genotype replaces the original.
func (e *Evolver) evaluate(ctx context.Context, population []ScoredGenotype, generation int) ([]ScoredGenotype, error) {
	scored := cloneScored(population)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range scored {
		i := i
		g.Go(func() error {
			if e.cfg.Tuner != nil && e.cfg.TuneAttempts > 0 {
				attempts := e.cfg.AttemptPolicy.Attempts(e.cfg.TuneAttempts, generation, e.cfg.Generations, scored[i].Genotype)
				tuned, report, err := e.cfg.Tuner.Tune(gctx, scored[i].Genotype, attempts, e.cfg.Fitness.Evaluate)
				if err != nil {
					return fmt.Errorf("tune %s: %w", scored[i].ID, err)
				}
				scored[i].Genotype = tuned
				e.log.Debug("genotype tuned",
					"id", scored[i].ID,
					"tuner", e.cfg.Tuner.Name(),
					"attempts", report.AttemptsExecuted,
					"accepted", report.AcceptedCandidates,
				)
			}
			fitness, err := e.cfg.Fitness.Evaluate(gctx, scored[i].Genotype)
			if err != nil {
				return fmt.Errorf("evaluate %s: %w", scored[i].ID, err)
			}
			scored[i].Fitness = fitness
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (e *Evolver) summarize(ranked []ScoredGenotype, generation int) GenerationStats {
	out := GenerationStats{Generation: generation}
	if len(ranked) == 0 {
		return out
	}
	out.BestFitness = ranked[0].Fitness
	out.MinFitness = ranked[0].Fitness
	species := make(map[string]struct{}, len(ranked))
	total, nodes, neurons := 0.0, 0, 0
	for _, item := range ranked {
		total += item.Fitness
		out.MinFitness = min(out.MinFitness, item.Fitness)
		nodes += item.Genotype.NodeCount()
		neurons += item.Genotype.NeuronCount()
		species[e.cfg.Identifier.Identify(item.Genotype)] = struct{}{}
	}
	n := float64(len(ranked))
	out.MeanFitness = total / n
	out.MeanNodes = float64(nodes) / n
	out.MeanNeurons = float64(neurons) / n
	out.SpeciesCount = len(species)
	return out
}

func (e *Evolver) nextGeneration(ctx context.Context, ranked []ScoredGenotype, generation int) ([]ScoredGenotype, []model.LineageRecord, error) {
	next := make([]ScoredGenotype, 0, e.cfg.PopulationSize)
	lineage := make([]model.LineageRecord, 0, e.cfg.PopulationSize)

	for i := 0; i < e.cfg.EliteCount; i++ {
		elite := ScoredGenotype{ID: ranked[i].ID, Genotype: ranked[i].Genotype.Clone()}
		next = append(next, elite)
		lineage = append(lineage, lineageRecord(elite, []string{ranked[i].ID}, generation, "elite_clone"))
	}

	eliteCount := min(e.cfg.EliteCount, len(ranked))
	for len(next) < e.cfg.PopulationSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		parent, err := e.cfg.Selector.PickParent(e.cfg.Rand, ranked, eliteCount)
		if err != nil {
			return nil, nil, err
		}
		child, record, err := e.breed(ctx, ranked, eliteCount, parent, generation)
		if err != nil {
			return nil, nil, err
		}
		next = append(next, child)
		lineage = append(lineage, record)
	}
	return next, lineage, nil
}

func (e *Evolver) breed(ctx context.Context, ranked []ScoredGenotype, eliteCount int, parent ScoredGenotype, generation int) (ScoredGenotype, model.LineageRecord, error) {
	current := parent.Genotype
	parents := []string{parent.ID}
	var ops []string

	if e.cfg.Crossover != nil && e.cfg.Rand.Float64() < e.cfg.CrossoverRate {
		mate, err := e.cfg.Selector.PickParent(e.cfg.Rand, ranked, eliteCount)
		if err != nil {
			return ScoredGenotype{}, model.LineageRecord{}, err
		}
		start := time.Now()
		res, err := e.cfg.Crossover.Apply(ctx, current, mate.Genotype)
		e.cfg.Mutator.Metrics.Observe(OpCrossover, err, time.Since(start))
		switch {
		case err == nil:
			current = res.ChildA
			parents = append(parents, mate.ID)
			ops = append(ops, OpCrossover)
		case errors.Is(err, ErrOperatorFailed):
			ops = append(ops, "noop("+OpCrossover+")")
		default:
			return ScoredGenotype{}, model.LineageRecord{}, err
		}
	}

	count, err := e.cfg.TopologicalMutations.MutationCount(current, generation, e.cfg.Rand)
	if err != nil {
		return ScoredGenotype{}, model.LineageRecord{}, err
	}
	for step := 0; step < count; step++ {
		next, name, err := e.cfg.Mutator.Mutate(ctx, current)
		if err != nil {
			if errors.Is(err, ErrOperatorFailed) {
				ops = append(ops, "noop("+name+")")
				continue
			}
			return ScoredGenotype{}, model.LineageRecord{}, err
		}
		current = next
		ops = append(ops, name)
	}

	child := ScoredGenotype{ID: uuid.NewString(), Genotype: current}
	return child, lineageRecord(child, parents, generation, strings.Join(ops, "+")), nil
}

func lineageRecord(item ScoredGenotype, parents []string, generation int, operation string) model.LineageRecord {
	return model.LineageRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: model.CurrentSchemaVersion,
			CodecVersion:  model.CurrentCodecVersion,
		},
		GenotypeID:  item.ID,
		ParentIDs:   parents,
		Generation:  generation,
		Operation:   operation,
		Fingerprint: genotype.ComputeSignature(item.Genotype).Fingerprint,
		Nodes:       item.Genotype.NodeCount(),
		Neurons:     item.Genotype.NeuronCount(),
	}
}
