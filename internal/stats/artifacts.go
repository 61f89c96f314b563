package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"fsgeno/internal/evo"
	"fsgeno/internal/genotype"
	"fsgeno/internal/model"
)

const runIndexFile = "run_index.json"

// Artifact file names inside a run directory.
const (
	ConfigFile      = "config.json"
	GenerationsFile = "generations.csv"
	LineageFile     = "lineage.csv"
	OperatorsFile   = "operators.csv"
	TopFile         = "top_genotypes.json"
	SpeciesFile     = "species.csv"
)

type RunConfig struct {
	RunID                string             `json:"run_id"`
	Seed                 int64              `json:"seed"`
	PopulationSize       int                `json:"population_size"`
	EliteCount           int                `json:"elite_count"`
	Generations          int                `json:"generations"`
	Workers              int                `json:"workers"`
	CrossoverRate        float64            `json:"crossover_rate"`
	MutationsPerChild    int                `json:"mutations_per_child"`
	MutationCountPolicy  string             `json:"mutation_count_policy,omitempty"`
	Fitness              string             `json:"fitness"`
	FitnessPostprocessor string             `json:"fitness_postprocessor,omitempty"`
	Selection            string             `json:"selection"`
	Weights              map[string]float64 `json:"weights,omitempty"`
	TuneAttempts         int                `json:"tune_attempts,omitempty"`
	Seeds                []string           `json:"seeds"`
}

type TopGenotype struct {
	ID          string  `json:"id"`
	Fitness     float64 `json:"fitness"`
	Text        string  `json:"text"`
	Fingerprint string  `json:"fingerprint"`
}

type RunArtifacts struct {
	Config      RunConfig
	Generations []evo.GenerationStats
	Lineage     []model.LineageRecord
	Top         []TopGenotype
	Species     []SpeciesRow
}

// SpeciesRow is one fingerprint species of a final population.
type SpeciesRow struct {
	Key            string `csv:"species"`
	Size           int    `csv:"size"`
	Representative string `csv:"representative"`
}

// SpeciesRows groups genotypes by structural fingerprint, largest species
// first. Representatives are printed with precision.
func SpeciesRows(genotypes []*genotype.Genotype, precision int) []SpeciesRow {
	species := genotype.SpeciateByFingerprint(genotypes)
	out := make([]SpeciesRow, 0, len(species))
	for key, members := range species {
		out = append(out, SpeciesRow{Key: key, Size: len(members), Representative: members[0].Format(precision)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// LineageRow is the flat CSV form of a lineage record. Parent IDs are joined
// with "|".
type LineageRow struct {
	GenotypeID  string `csv:"genotype_id"`
	ParentIDs   string `csv:"parent_ids"`
	Generation  int    `csv:"generation"`
	Operation   string `csv:"operation"`
	Fingerprint string `csv:"fingerprint"`
	Nodes       int    `csv:"nodes"`
	Neurons     int    `csv:"neurons"`
}

type OperatorRow struct {
	Operator  string `csv:"operator"`
	Succeeded int    `csv:"succeeded"`
	Failed    int    `csv:"failed"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Fitness          string  `json:"fitness"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

func LineageRows(records []model.LineageRecord) []LineageRow {
	rows := make([]LineageRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, LineageRow{
			GenotypeID:  r.GenotypeID,
			ParentIDs:   strings.Join(r.ParentIDs, "|"),
			Generation:  r.Generation,
			Operation:   r.Operation,
			Fingerprint: r.Fingerprint,
			Nodes:       r.Nodes,
			Neurons:     r.Neurons,
		})
	}
	return rows
}

// Record converts the row back to a lineage record. Version fields are
// not kept in the CSV form.
func (r LineageRow) Record() model.LineageRecord {
	var parents []string
	if r.ParentIDs != "" {
		parents = strings.Split(r.ParentIDs, "|")
	}
	return model.LineageRecord{
		GenotypeID:  r.GenotypeID,
		ParentIDs:   parents,
		Generation:  r.Generation,
		Operation:   r.Operation,
		Fingerprint: r.Fingerprint,
		Nodes:       r.Nodes,
		Neurons:     r.Neurons,
	}
}

// OperatorStats tallies the operations named in lineage records. A step
// written as "noop(name)" counts as a failure of name; seeding and elite
// copies are not operators and are skipped.
func OperatorStats(records []model.LineageRecord) []OperatorRow {
	byName := make(map[string]*OperatorRow)
	row := func(name string) *OperatorRow {
		r, ok := byName[name]
		if !ok {
			r = &OperatorRow{Operator: name}
			byName[name] = r
		}
		return r
	}
	for _, rec := range records {
		if rec.Operation == "seed" || rec.Operation == "elite_clone" || rec.Operation == "" {
			continue
		}
		for _, step := range strings.Split(rec.Operation, "+") {
			if name, ok := strings.CutPrefix(step, "noop("); ok {
				row(strings.TrimSuffix(name, ")")).Failed++
				continue
			}
			row(step).Succeeded++
		}
	}
	out := make([]OperatorRow, 0, len(byName))
	for _, r := range byName {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operator < out[j].Operator })
	return out
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, ConfigFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, GenerationsFile), artifacts.Generations); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, LineageFile), LineageRows(artifacts.Lineage)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, OperatorsFile), OperatorStats(artifacts.Lineage)); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, TopFile), artifacts.Top); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, SpeciesFile), artifacts.Species); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, ConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}
	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadLineage(baseDir, runID string) ([]LineageRow, bool, error) {
	var rows []LineageRow
	ok, err := readCSV(filepath.Join(baseDir, runID, LineageFile), &rows)
	return rows, ok, err
}

func ReadGenerations(baseDir, runID string) ([]evo.GenerationStats, bool, error) {
	var rows []evo.GenerationStats
	ok, err := readCSV(filepath.Join(baseDir, runID, GenerationsFile), &rows)
	return rows, ok, err
}

// ExportRunArtifacts copies one run directory into outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, file := range []string{ConfigFile, GenerationsFile, LineageFile, OperatorsFile, TopFile, SpeciesFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func writeCSV(path string, rows any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := gocsv.MarshalFile(rows, file); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readCSV(path string, out any) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer file.Close()
	if err := gocsv.UnmarshalFile(file, out); err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
