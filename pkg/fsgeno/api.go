// Package fsgeno is the public entry point to the fS genotype engine: parsing,
// validation, phenotype building, genetic operators, evolution runs and
// their stored artifacts.
package fsgeno

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"fsgeno/internal/config"
	"fsgeno/internal/evo"
	"fsgeno/internal/genotype"
	"fsgeno/internal/model"
	"fsgeno/internal/stats"
	"fsgeno/internal/storage"
	"fsgeno/internal/tuning"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
)

type Options struct {
	// ConfigPath is a YAML file merged over the embedded defaults. Config,
	// when set, takes precedence.
	ConfigPath string
	Config     *config.Config

	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string

	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

type Client struct {
	cfg     *config.Config
	opts    genotype.Options
	store   storage.Store
	metrics *evo.Metrics
	log     *slog.Logger

	initialized bool

	runsDir    string
	exportsDir string
}

type CheckResult struct {
	Text     string
	Valid    bool
	Position int
}

type MutateRequest struct {
	Text string
	// Operator names a registered operator. Empty picks one by the
	// configured weights.
	Operator string
	Count    int
	Seed     int64
}

type MutateResult struct {
	Text       string
	Operations []string
}

// EditRequest applies exact edits. Nodes are addressed by their pre-order
// position. SetParams entries read "node:key=value" and RemoveNeurons entries
// read "node:local"; removals run in order after all parameter edits.
type EditRequest struct {
	Text          string
	SetParams     []string
	RemoveNeurons []string
}

type CrossoverRequest struct {
	A    string
	B    string
	Seed int64
}

type CrossoverResult struct {
	ChildA  string
	ChildB  string
	ChangeA float64
	ChangeB float64
}

// EvolveRequest overrides the evolve section of the configuration. Zero
// fields keep the configured values.
type EvolveRequest struct {
	Seeds             []string
	Population        int
	Elite             int
	Generations       int
	Workers           int
	CrossoverRate     float64
	MutationsPerChild int
	Fitness           string
	Selection         string
	Seed              int64
	TopCount          int
	// TuneAttempts overrides tuning.attempts when positive.
	TuneAttempts int
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Generations      []evo.GenerationStats
	FinalBestFitness float64
	Best             model.GenotypeRecord
	// Species groups the final population by structural fingerprint.
	Species []stats.SpeciesRow
}

type RunsRequest struct {
	Limit int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type LineageRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = cfg.Storage.Kind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = cfg.Storage.Path
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	metrics, err := evo.NewMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		opts:       cfg.Options(),
		store:      store,
		metrics:    metrics,
		log:        logger,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Config() *config.Config {
	return c.cfg
}

func (c *Client) Parse(text string) (*genotype.Genotype, error) {
	return genotype.ParseWith(text, c.opts)
}

// Format prints g with the configured precision.
func (c *Client) Format(g *genotype.Genotype) string {
	return g.Format(c.opts.Precision)
}

// Check parses and validates text. Position is the 1-based offset of the
// offending character when Valid is false.
func (c *Client) Check(text string) CheckResult {
	pos, ok := genotype.CheckValidityWith(text, c.opts)
	return CheckResult{Text: text, Valid: ok, Position: pos}
}

// CheckAll validates texts concurrently; results keep the input order.
func (c *Client) CheckAll(ctx context.Context, texts []string, workers int) ([]CheckResult, error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([]CheckResult, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range texts {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = c.Check(texts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Build(text string) (*model.Model, error) {
	g, err := c.Parse(text)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(c.opts); err != nil {
		return nil, err
	}
	return genotype.BuildModel(g, c.opts)
}

// NewGenotype returns a single-part genotype with the configured header.
// shape is a part letter: E, C or R.
func (c *Client) NewGenotype(shape string) (*genotype.Genotype, error) {
	if len(shape) != 1 {
		return nil, fmt.Errorf("part type must be one of E, C, R: %q", shape)
	}
	s, ok := genotype.ShapeFromLetter(strings.ToUpper(shape)[0])
	if !ok {
		return nil, fmt.Errorf("part type must be one of E, C, R: %q", shape)
	}
	return &genotype.Genotype{
		Params: c.cfg.HeaderParams(),
		Nodes:  []genotype.Node{genotype.NewNode(s)},
		Root:   0,
	}, nil
}

func (c *Client) env(seed int64) *evo.Env {
	env := evo.NewEnv(rand.New(rand.NewSource(seed)), c.opts)
	env.Tries = c.cfg.Mutation.Tries
	return env
}

func (c *Client) Mutate(ctx context.Context, req MutateRequest) (MutateResult, error) {
	g, err := c.Parse(req.Text)
	if err != nil {
		return MutateResult{}, err
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	env := c.env(req.Seed)

	var apply func(context.Context, *genotype.Genotype) (*genotype.Genotype, string, error)
	if req.Operator != "" {
		op, err := evo.NewOperator(req.Operator, env)
		if err != nil {
			return MutateResult{}, err
		}
		apply = func(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, string, error) {
			start := time.Now()
			out, err := op.Apply(ctx, g)
			c.metrics.Observe(op.Name(), err, time.Since(start))
			return out, op.Name(), err
		}
	} else {
		mutator, err := evo.NewMutator(env, c.cfg.Mutation.Weights, c.metrics)
		if err != nil {
			return MutateResult{}, err
		}
		apply = mutator.Mutate
	}

	ops := make([]string, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		next, name, err := apply(ctx, g)
		if err != nil {
			return MutateResult{}, err
		}
		g = next
		ops = append(ops, name)
	}
	return MutateResult{Text: c.Format(g), Operations: ops}, nil
}

// Edit applies addressed parameter edits and neuron removals. An edit that
// would leave the genotype invalid is rejected and nothing is returned.
func (c *Client) Edit(ctx context.Context, req EditRequest) (MutateResult, error) {
	g, err := c.Parse(req.Text)
	if err != nil {
		return MutateResult{}, err
	}
	var ops []evo.Operator
	for _, edit := range req.SetParams {
		addr, assign, ok := strings.Cut(edit, ":")
		key, raw, ok2 := strings.Cut(assign, "=")
		if !ok || !ok2 {
			return MutateResult{}, fmt.Errorf("parameter edit %q: want node:key=value", edit)
		}
		node, err := nodeAt(g, addr)
		if err != nil {
			return MutateResult{}, fmt.Errorf("parameter edit %q: %w", edit, err)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return MutateResult{}, fmt.Errorf("parameter edit %q: %w", edit, err)
		}
		ops = append(ops, evo.SetParamAt{Node: node, Key: key, Value: value, Options: c.opts})
	}
	for _, edit := range req.RemoveNeurons {
		addr, rawLocal, ok := strings.Cut(edit, ":")
		if !ok {
			return MutateResult{}, fmt.Errorf("neuron removal %q: want node:local", edit)
		}
		node, err := nodeAt(g, addr)
		if err != nil {
			return MutateResult{}, fmt.Errorf("neuron removal %q: %w", edit, err)
		}
		local, err := strconv.Atoi(rawLocal)
		if err != nil {
			return MutateResult{}, fmt.Errorf("neuron removal %q: %w", edit, err)
		}
		ops = append(ops, evo.RemoveNeuronAt{Node: node, Local: local, Options: c.opts})
	}

	names := make([]string, 0, len(ops))
	for _, op := range ops {
		start := time.Now()
		next, err := op.Apply(ctx, g)
		c.metrics.Observe(op.Name(), err, time.Since(start))
		if err != nil {
			return MutateResult{}, err
		}
		g = next
		names = append(names, op.Name())
	}
	return MutateResult{Text: c.Format(g), Operations: names}, nil
}

// nodeAt resolves a pre-order position to a node id.
func nodeAt(g *genotype.Genotype, raw string) (genotype.NodeID, error) {
	pos, err := strconv.Atoi(raw)
	if err != nil {
		return genotype.NoNode, fmt.Errorf("node position %q: %w", raw, err)
	}
	order := g.PreOrder()
	if pos < 0 || pos >= len(order) {
		return genotype.NoNode, fmt.Errorf("node position %d out of range [0, %d)", pos, len(order))
	}
	return order[pos], nil
}

func (c *Client) Crossover(ctx context.Context, req CrossoverRequest) (CrossoverResult, error) {
	a, err := c.Parse(req.A)
	if err != nil {
		return CrossoverResult{}, fmt.Errorf("first parent: %w", err)
	}
	b, err := c.Parse(req.B)
	if err != nil {
		return CrossoverResult{}, fmt.Errorf("second parent: %w", err)
	}
	x := evo.Crossover{Rand: rand.New(rand.NewSource(req.Seed)), Tries: c.cfg.Crossover.Tries, Options: c.opts}
	start := time.Now()
	res, err := x.Apply(ctx, a, b)
	c.metrics.Observe(evo.OpCrossover, err, time.Since(start))
	if err != nil {
		return CrossoverResult{}, err
	}
	return CrossoverResult{
		ChildA:  c.Format(res.ChildA),
		ChildB:  c.Format(res.ChildB),
		ChangeA: res.ChangeA,
		ChangeB: res.ChangeB,
	}, nil
}

// Save validates text and stores it. An empty id gets a fresh one.
func (c *Client) Save(ctx context.Context, id, text string) (model.GenotypeRecord, error) {
	if err := c.ensureInit(ctx); err != nil {
		return model.GenotypeRecord{}, err
	}
	g, err := c.Parse(text)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	if err := g.Validate(c.opts); err != nil {
		return model.GenotypeRecord{}, err
	}
	return genotype.SaveGenotype(ctx, c.store, id, g)
}

func (c *Client) Show(ctx context.Context, id string) (model.GenotypeRecord, error) {
	if err := c.ensureInit(ctx); err != nil {
		return model.GenotypeRecord{}, err
	}
	_, record, err := genotype.LoadGenotype(ctx, c.store, id)
	return record, err
}

func (c *Client) List(ctx context.Context) ([]model.GenotypeRecord, error) {
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	return c.store.ListGenotypes(ctx)
}

func (c *Client) Evolve(ctx context.Context, req EvolveRequest) (RunSummary, error) {
	if len(req.Seeds) == 0 {
		return RunSummary{}, errors.New("at least one seed genotype is required")
	}
	if err := c.ensureInit(ctx); err != nil {
		return RunSummary{}, err
	}

	e := c.cfg.Evolve
	if req.Population > 0 {
		e.Population = req.Population
	}
	if req.Elite > 0 {
		e.Elite = req.Elite
	} else if e.Elite > e.Population {
		e.Elite = max(1, e.Population/5)
	}
	if req.Generations > 0 {
		e.Generations = req.Generations
	}
	if req.Workers > 0 {
		e.Workers = req.Workers
	}
	if req.CrossoverRate > 0 {
		e.CrossoverRate = req.CrossoverRate
	}
	if req.MutationsPerChild > 0 {
		e.MutationsPerChild = req.MutationsPerChild
	}
	if req.Fitness != "" {
		e.Fitness = req.Fitness
	}
	if req.Selection != "" {
		e.Selector = req.Selection
	}
	if req.Seed != 0 {
		e.Seed = req.Seed
	}
	if req.TopCount <= 0 {
		req.TopCount = 5
	}
	tc := c.cfg.Tuning
	if req.TuneAttempts > 0 {
		tc.Attempts = req.TuneAttempts
	}

	seeds := make([]*genotype.Genotype, 0, len(req.Seeds))
	for i, text := range req.Seeds {
		g, err := c.Parse(text)
		if err != nil {
			return RunSummary{}, fmt.Errorf("seed %d: %w", i, err)
		}
		if err := g.Validate(c.opts); err != nil {
			return RunSummary{}, fmt.Errorf("seed %d: %w", i, err)
		}
		seeds = append(seeds, g)
	}

	selector, err := selectionFromName(e.Selector)
	if err != nil {
		return RunSummary{}, err
	}
	fitness, err := evo.NewFitness(e.Fitness, c.opts)
	if err != nil {
		return RunSummary{}, err
	}
	postprocessor, err := evo.NewFitnessPostprocessor(e.FitnessPostprocessor)
	if err != nil {
		return RunSummary{}, err
	}
	mutationPolicy, err := e.MutationPolicy()
	if err != nil {
		return RunSummary{}, err
	}
	rng := rand.New(rand.NewSource(e.Seed))
	env := evo.NewEnv(rng, c.opts)
	env.Tries = c.cfg.Mutation.Tries
	mutator, err := evo.NewMutator(env, c.cfg.Mutation.Weights, c.metrics)
	if err != nil {
		return RunSummary{}, err
	}
	attemptPolicy, err := tuning.AttemptPolicyFromConfig(tc.AttemptPolicy, tc.AttemptPolicyParam)
	if err != nil {
		return RunSummary{}, err
	}
	var tuner tuning.Tuner
	if tc.Attempts > 0 {
		tuner = &tuning.Exoself{
			Rand:               rand.New(rand.NewSource(e.Seed + 1)),
			Steps:              tc.Steps,
			StepSize:           tc.StepSize,
			AnnealingFactor:    tc.AnnealingFactor,
			MinImprovement:     tc.MinImprovement,
			CandidateSelection: tc.CandidateSelection,
		}
	}
	evolver, err := evo.NewEvolver(evo.EvolverConfig{
		Mutator:              mutator,
		Crossover:            &evo.Crossover{Rand: rng, Tries: c.cfg.Crossover.Tries, Options: c.opts},
		CrossoverRate:        e.CrossoverRate,
		Fitness:              fitness,
		Selector:             selector,
		Postprocessor:        postprocessor,
		TopologicalMutations: mutationPolicy,
		Tuner:                tuner,
		TuneAttempts:         tc.Attempts,
		AttemptPolicy:        attemptPolicy,
		PopulationSize:       e.Population,
		EliteCount:           e.Elite,
		Generations:          e.Generations,
		Workers:              e.Workers,
		Rand:                 rng,
		Logger:               c.log,
	})
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%d-%d", e.Fitness, e.Seed, now.UnixNano())
	c.log.Info("evolution started", "run_id", runID, "population", e.Population, "generations", e.Generations)

	result, err := evolver.Run(ctx, seeds)
	if err != nil {
		return RunSummary{}, err
	}

	if err := c.store.SaveLineage(ctx, runID, result.Lineage); err != nil {
		return RunSummary{}, err
	}
	top := make([]stats.TopGenotype, 0, req.TopCount)
	var best model.GenotypeRecord
	for i, item := range result.FinalPopulation {
		if i >= req.TopCount {
			break
		}
		record, err := genotype.SaveGenotype(ctx, c.store, item.ID, item.Genotype)
		if err != nil {
			return RunSummary{}, err
		}
		if i == 0 {
			best = record
		}
		top = append(top, stats.TopGenotype{
			ID:          record.ID,
			Fitness:     item.Fitness,
			Text:        record.Text,
			Fingerprint: record.Fingerprint,
		})
	}

	finalBest := 0.0
	if n := len(result.Generations); n > 0 {
		finalBest = result.Generations[n-1].BestFitness
	}
	finals := make([]*genotype.Genotype, 0, len(result.FinalPopulation))
	for _, item := range result.FinalPopulation {
		finals = append(finals, item.Genotype)
	}
	species := stats.SpeciesRows(finals, c.opts.Precision)
	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:                runID,
			Seed:                 e.Seed,
			PopulationSize:       e.Population,
			EliteCount:           e.Elite,
			Generations:          e.Generations,
			Workers:              e.Workers,
			CrossoverRate:        e.CrossoverRate,
			MutationsPerChild:    e.MutationsPerChild,
			MutationCountPolicy:  mutationPolicy.Name(),
			Fitness:              e.Fitness,
			FitnessPostprocessor: postprocessor.Name(),
			Selection:            e.Selector,
			Weights:              c.cfg.Mutation.Weights,
			TuneAttempts:         tc.Attempts,
			Seeds:                append([]string(nil), req.Seeds...),
		},
		Generations: result.Generations,
		Lineage:     result.Lineage,
		Top:         top,
		Species:     species,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:            runID,
		PopulationSize:   e.Population,
		Generations:      e.Generations,
		Seed:             e.Seed,
		Fitness:          e.Fitness,
		FinalBestFitness: finalBest,
		CreatedAtUTC:     now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}
	c.log.Info("evolution finished", "run_id", runID, "best", finalBest, "species", len(species), "artifacts", runDir)

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		Generations:      result.Generations,
		FinalBestFitness: finalBest,
		Best:             best,
		Species:          species,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]stats.RunIndexEntry, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return entries, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Lineage(ctx context.Context, req LineageRequest) ([]model.LineageRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "lineage")
	if err != nil {
		return nil, err
	}
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	lineage, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(lineage) > req.Limit {
		lineage = lineage[:req.Limit]
	}
	return lineage, nil
}

// OperatorStats tallies operator successes and failures over a stored run.
func (c *Client) OperatorStats(ctx context.Context, req LineageRequest) ([]stats.OperatorRow, error) {
	lineage, err := c.Lineage(ctx, LineageRequest{RunID: req.RunID, Latest: req.Latest})
	if err != nil {
		return nil, err
	}
	return stats.OperatorStats(lineage), nil
}

func (c *Client) resolveRunID(runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensureInit(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func selectionFromName(name string) (evo.Selector, error) {
	switch name {
	case "elite":
		return evo.EliteSelector{}, nil
	case "tournament":
		return evo.TournamentSelector{TournamentSize: 3}, nil
	case "species_tournament":
		return evo.SpeciesTournamentSelector{
			Identifier:     evo.TopologySpecieIdentifier{},
			TournamentSize: 3,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}
