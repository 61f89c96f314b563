package evo

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsgeno/internal/genotype"
	"fsgeno/internal/tuning"
)

func newTestEvolver(t *testing.T, seed int64, fitness Fitness, crossoverRate float64) *Evolver {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	env := NewEnv(rng, genotype.DefaultOptions())
	mut, err := NewMutator(env, DefaultWeights, nil)
	require.NoError(t, err)

	e, err := NewEvolver(EvolverConfig{
		Mutator:        mut,
		Crossover:      &Crossover{Rand: rng, Options: env.Options},
		CrossoverRate:  crossoverRate,
		Fitness:        fitness,
		Selector:       TournamentSelector{TournamentSize: 2},
		PopulationSize: 6,
		EliteCount:     2,
		Generations:    4,
		Workers:        3,
		Rand:           rng,
	})
	require.NoError(t, err)
	return e
}

func TestEvolverRunRecordsLineage(t *testing.T) {
	e := newTestEvolver(t, 5, NodeCountFitness{}, 0.3)

	res, err := e.Run(context.Background(), []*genotype.Genotype{mustParse(t, "1.1:E[N]E")})
	require.NoError(t, err)

	require.Len(t, res.Generations, 4)
	require.Len(t, res.FinalPopulation, 6)
	assert.Len(t, res.Lineage, 6+6*3)

	for i := 1; i < len(res.Generations); i++ {
		assert.GreaterOrEqual(t, res.Generations[i].BestFitness, res.Generations[i-1].BestFitness)
	}
	for _, item := range res.FinalPopulation {
		assertInvariants(t, item.Genotype, genotype.DefaultOptions())
		assert.NotEmpty(t, item.ID)
	}
	seeds := 0
	for _, record := range res.Lineage {
		assert.Equal(t, SupportedSchemaVersion, record.SchemaVersion)
		assert.NotEmpty(t, record.Fingerprint)
		if record.Operation == "seed" {
			seeds++
			assert.Empty(t, record.ParentIDs)
			assert.Zero(t, record.Generation)
		} else {
			assert.NotEmpty(t, record.ParentIDs)
		}
	}
	assert.Equal(t, 6, seeds)
}

func TestEvolverVolumeFitness(t *testing.T) {
	e := newTestEvolver(t, 9, VolumeFitness{Options: genotype.DefaultOptions()}, 0)

	res, err := e.Run(context.Background(), []*genotype.Genotype{mustParse(t, "1.1:C"), mustParse(t, "1.1:EE")})
	require.NoError(t, err)
	assert.Greater(t, res.Generations[0].BestFitness, 0.0)
	assert.GreaterOrEqual(t, res.Generations[0].SpeciesCount, 1)
}

func TestEvolverTunesConnectionWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	mut, err := NewMutator(NewEnv(rng, genotype.DefaultOptions()), DefaultWeights, nil)
	require.NoError(t, err)
	e, err := NewEvolver(EvolverConfig{
		Mutator:        mut,
		Fitness:        NetworkFitness{},
		Tuner:          &tuning.Exoself{Rand: rand.New(rand.NewSource(8)), Steps: 4, StepSize: 0.3},
		TuneAttempts:   20,
		PopulationSize: 2,
		EliteCount:     1,
		Generations:    1,
		Rand:           rng,
	})
	require.NoError(t, err)

	seed := mustParse(t, "1.1:E[N]E[N_0:-2]")
	baseline, err := NetworkFitness{}.Evaluate(context.Background(), seed)
	require.NoError(t, err)
	assert.InDelta(t, -8.0, baseline, 1e-9)

	res, err := e.Run(context.Background(), []*genotype.Genotype{seed})
	require.NoError(t, err)
	assert.Greater(t, res.Generations[0].BestFitness, baseline)
	assert.Equal(t, "1.1,0,0.4:E[N]E[N_0:-2]", seed.String())
}

func TestEvolverStopsOnCancel(t *testing.T) {
	e := newTestEvolver(t, 1, ZeroFitness{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, []*genotype.Genotype{mustParse(t, "1.1:E")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEvolverValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mut, err := NewMutator(NewEnv(rng, genotype.DefaultOptions()), DefaultWeights, nil)
	require.NoError(t, err)
	valid := EvolverConfig{
		Mutator:        mut,
		Fitness:        ZeroFitness{},
		Rand:           rng,
		PopulationSize: 2,
		EliteCount:     1,
		Generations:    1,
	}
	_, err = NewEvolver(valid)
	require.NoError(t, err)

	for name, edit := range map[string]func(*EvolverConfig){
		"no mutator":     func(c *EvolverConfig) { c.Mutator = nil },
		"no fitness":     func(c *EvolverConfig) { c.Fitness = nil },
		"no rand":        func(c *EvolverConfig) { c.Rand = nil },
		"elite too big":  func(c *EvolverConfig) { c.EliteCount = 3 },
		"no generations": func(c *EvolverConfig) { c.Generations = 0 },
		"bad crossover":  func(c *EvolverConfig) { c.CrossoverRate = 2 },
		"negative tune":  func(c *EvolverConfig) { c.TuneAttempts = -1 },
	} {
		cfg := valid
		edit(&cfg)
		_, err := NewEvolver(cfg)
		assert.Error(t, err, name)
	}

	e, err := NewEvolver(valid)
	require.NoError(t, err)
	_, err = e.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewFitness(t *testing.T) {
	for _, kind := range FitnessKinds() {
		f, err := NewFitness(kind, genotype.DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, kind, f.Name())
	}
	_, err := NewFitness("speed", genotype.DefaultOptions())
	assert.Error(t, err)

	v, err := VolumeFitness{Options: genotype.DefaultOptions()}.Evaluate(context.Background(), mustParse(t, "1.1:C"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestNewMutatorRejectsBadWeights(t *testing.T) {
	env := testEnv(1)
	_, err := NewMutator(env, map[string]float64{OpAddPart: -1}, nil)
	assert.Error(t, err)
	_, err = NewMutator(env, map[string]float64{OpAddPart: 0}, nil)
	assert.Error(t, err)
	_, err = NewMutator(env, map[string]float64{"unknown": 1}, nil)
	assert.ErrorIs(t, err, ErrOperatorNotFound)
}
