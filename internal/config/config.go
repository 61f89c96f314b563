// Package config loads fsgeno settings from YAML layered over embedded
// defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fsgeno/internal/evo"
	"fsgeno/internal/genotype"
	"fsgeno/internal/geom"
	"fsgeno/internal/model"
	"fsgeno/internal/tuning"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Genotype  GenotypeConfig       `yaml:"genotype"`
	Bounds    model.PartBounds     `yaml:"bounds"`
	Distance  geom.DistanceOptions `yaml:"distance"`
	Mutation  MutationConfig       `yaml:"mutation"`
	Crossover CrossoverConfig      `yaml:"crossover"`
	Storage   StorageConfig        `yaml:"storage"`
	Evolve    EvolveConfig         `yaml:"evolve"`
	Tuning    TuningConfig         `yaml:"tuning"`
}

// GenotypeConfig holds the header defaults for new genotypes and the
// printing precision.
type GenotypeConfig struct {
	ModifierMultiplier    float64 `yaml:"modifier_multiplier"`
	TurnWithRotation      bool    `yaml:"turn_with_rotation"`
	ParamMutationStrength float64 `yaml:"param_mutation_strength"`
	Precision             int     `yaml:"precision"`
}

type MutationConfig struct {
	Tries               int                `yaml:"tries"`
	EnsureCircleSection bool               `yaml:"ensure_circle_section"`
	Weights             map[string]float64 `yaml:"weights"`
}

type CrossoverConfig struct {
	Tries int `yaml:"tries"`
}

type StorageConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

type EvolveConfig struct {
	Population        int     `yaml:"population"`
	Elite             int     `yaml:"elite"`
	Generations       int     `yaml:"generations"`
	Workers           int     `yaml:"workers"`
	CrossoverRate     float64 `yaml:"crossover_rate"`
	MutationsPerChild int     `yaml:"mutations_per_child"`
	Fitness           string  `yaml:"fitness"`
	Selector          string  `yaml:"selector"`
	Seed              int64   `yaml:"seed"`

	// FitnessPostprocessor is "none" or "size_proportional".
	FitnessPostprocessor string `yaml:"fitness_postprocessor"`

	// MutationCountPolicy is "const", "ncount_linear" or "ncount_exponential".
	// The const policy uses MutationsPerChild; the others scale with the
	// neuron count by MutationCountParam, capped at MutationCountMax.
	MutationCountPolicy string  `yaml:"mutation_count_policy"`
	MutationCountParam  float64 `yaml:"mutation_count_param"`
	MutationCountMax    int     `yaml:"mutation_count_max"`
}

// TuningConfig controls connection weight refinement during evolution.
// Attempts of zero disables it.
type TuningConfig struct {
	Attempts           int     `yaml:"attempts"`
	Steps              int     `yaml:"steps"`
	StepSize           float64 `yaml:"step_size"`
	AnnealingFactor    float64 `yaml:"annealing_factor"`
	MinImprovement     float64 `yaml:"min_improvement"`
	CandidateSelection string  `yaml:"candidate_selection"`
	AttemptPolicy      string  `yaml:"attempt_policy"`
	AttemptPolicyParam float64 `yaml:"attempt_policy_param"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Keys absent from the file keep their default values.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Genotype.ModifierMultiplier <= 1 {
		errs = append(errs, fmt.Errorf("genotype.modifier_multiplier must be > 1, got %g", c.Genotype.ModifierMultiplier))
	}
	if c.Genotype.ParamMutationStrength <= 0 {
		errs = append(errs, fmt.Errorf("genotype.param_mutation_strength must be > 0"))
	}
	if c.Genotype.Precision < 0 || c.Genotype.Precision > 12 {
		errs = append(errs, fmt.Errorf("genotype.precision must be in [0, 12], got %d", c.Genotype.Precision))
	}

	b := c.Bounds
	if b.MinVolume <= 0 || b.MaxVolume <= b.MinVolume {
		errs = append(errs, fmt.Errorf("bounds: volume range [%g, %g] is empty", b.MinVolume, b.MaxVolume))
	}
	if b.MinRadius <= 0 || b.MaxRadius <= b.MinRadius {
		errs = append(errs, fmt.Errorf("bounds: radius range [%g, %g] is empty", b.MinRadius, b.MaxRadius))
	}
	if b.DefaultRadius < b.MinRadius || b.DefaultRadius > b.MaxRadius {
		errs = append(errs, fmt.Errorf("bounds.default_radius %g outside radius range", b.DefaultRadius))
	}

	if c.Distance.Tolerance <= 0 || c.Distance.Density <= 0 || c.Distance.HighFactor < 1 {
		errs = append(errs, errors.New("distance: tolerance and density must be > 0 and high_factor >= 1"))
	}

	if c.Mutation.Tries <= 0 {
		errs = append(errs, errors.New("mutation.tries must be > 0"))
	}
	positive := false
	for name, w := range c.Mutation.Weights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("mutation.weights.%s must be >= 0, got %g", name, w))
		}
		if w > 0 {
			positive = true
		}
	}
	if !positive {
		errs = append(errs, errors.New("mutation.weights needs at least one positive weight"))
	}
	if c.Crossover.Tries <= 0 {
		errs = append(errs, errors.New("crossover.tries must be > 0"))
	}

	e := c.Evolve
	if e.Population <= 0 {
		errs = append(errs, errors.New("evolve.population must be > 0"))
	}
	if e.Elite <= 0 || e.Elite > e.Population {
		errs = append(errs, errors.New("evolve.elite must be in [1, population]"))
	}
	if e.Generations <= 0 {
		errs = append(errs, errors.New("evolve.generations must be > 0"))
	}
	if e.CrossoverRate < 0 || e.CrossoverRate > 1 {
		errs = append(errs, errors.New("evolve.crossover_rate must be in [0, 1]"))
	}
	if e.MutationsPerChild <= 0 {
		errs = append(errs, errors.New("evolve.mutations_per_child must be > 0"))
	}
	if _, err := evo.NewFitnessPostprocessor(e.FitnessPostprocessor); err != nil {
		errs = append(errs, fmt.Errorf("evolve.fitness_postprocessor: %w", err))
	}
	if e.MutationCountMax < 0 {
		errs = append(errs, errors.New("evolve.mutation_count_max must be >= 0"))
	}
	if _, err := e.MutationPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("evolve.mutation_count_policy: %w", err))
	}

	tc := c.Tuning
	if tc.Attempts < 0 {
		errs = append(errs, errors.New("tuning.attempts must be >= 0"))
	}
	if tc.Steps <= 0 || tc.StepSize <= 0 {
		errs = append(errs, errors.New("tuning.steps and tuning.step_size must be > 0"))
	}
	if tc.AnnealingFactor < 0 || tc.MinImprovement < 0 {
		errs = append(errs, errors.New("tuning.annealing_factor and tuning.min_improvement must be >= 0"))
	}
	if !tuning.ValidCandidateSelection(tc.CandidateSelection) {
		errs = append(errs, fmt.Errorf("tuning.candidate_selection %q is not supported", tc.CandidateSelection))
	}
	if _, err := tuning.AttemptPolicyFromConfig(tc.AttemptPolicy, tc.AttemptPolicyParam); err != nil {
		errs = append(errs, fmt.Errorf("tuning.attempt_policy: %w", err))
	}
	return errors.Join(errs...)
}

// MutationPolicy resolves how many mutations each child receives.
func (e EvolveConfig) MutationPolicy() (evo.TopologicalMutationPolicy, error) {
	return evo.NewTopologicalMutationPolicy(e.MutationCountPolicy, e.MutationsPerChild, e.MutationCountParam, e.MutationCountMax)
}

// Options converts the settings used by parsing, validation and printing.
func (c *Config) Options() genotype.Options {
	return genotype.Options{
		Bounds:              c.Bounds,
		Distance:            c.Distance,
		EnsureCircleSection: c.Mutation.EnsureCircleSection,
		Precision:           c.Genotype.Precision,
		Header:              c.HeaderParams(),
	}
}

// HeaderParams returns the global parameter triple for new genotypes.
func (c *Config) HeaderParams() genotype.Params {
	return genotype.Params{
		ModifierMultiplier:    c.Genotype.ModifierMultiplier,
		TurnWithRotation:      c.Genotype.TurnWithRotation,
		ParamMutationStrength: c.Genotype.ParamMutationStrength,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
