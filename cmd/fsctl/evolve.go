package main

import (
	"fmt"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"fsgeno/internal/model"
	"fsgeno/internal/stats"
	"fsgeno/pkg/fsgeno"
)

func (a *app) evolveCmd() *cobra.Command {
	var (
		req         fsgeno.EvolveRequest
		seedsFile   string
		showMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "evolve [seed genotype...]",
		Short: "Evolve a population from seed genotypes and record the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds := append([]string(nil), args...)
			if seedsFile != "" {
				lines, err := readLinesFromFile(seedsFile)
				if err != nil {
					return err
				}
				seeds = append(seeds, lines...)
			}
			if len(seeds) == 0 {
				return fmt.Errorf("evolve requires at least one seed genotype")
			}
			req.Seeds = seeds

			return a.withClient(func(c *fsgeno.Client) error {
				summary, err := c.Evolve(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "run_id=%s\n", summary.RunID)
				for _, g := range summary.Generations {
					fmt.Fprintf(a.stdout, "generation=%d best=%.6f mean=%.6f species=%d nodes=%.2f neurons=%.2f\n",
						g.Generation, g.BestFitness, g.MeanFitness, g.SpeciesCount, g.MeanNodes, g.MeanNeurons)
				}
				fmt.Fprintf(a.stdout, "best=%s %s\n", summary.Best.ID, summary.Best.Text)
				for _, sp := range summary.Species {
					fmt.Fprintf(a.stdout, "final_species size=%d %s\n", sp.Size, sp.Representative)
				}
				fmt.Fprintf(a.stdout, "artifacts=%s\n", summary.ArtifactsDir)
				if showMetrics {
					return a.printOperatorMetrics()
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&seedsFile, "seeds-file", "", "file with one seed genotype per line")
	f.IntVar(&req.Population, "pop", 0, "population size (default from config)")
	f.IntVar(&req.Elite, "elite", 0, "elite count (default from config)")
	f.IntVar(&req.Generations, "gens", 0, "generations (default from config)")
	f.IntVar(&req.Workers, "workers", 0, "parallel fitness workers (default from config)")
	f.Float64Var(&req.CrossoverRate, "crossover-rate", 0, "probability of crossover per child (default from config)")
	f.IntVar(&req.MutationsPerChild, "mutations", 0, "mutations per child (default from config)")
	f.StringVar(&req.Fitness, "fitness", "", "fitness: size|nodes|neurons|network|none (default from config)")
	f.StringVar(&req.Selection, "selection", "", "selection: elite|tournament|species_tournament (default from config)")
	f.Int64Var(&req.Seed, "seed", 0, "random seed (default from config)")
	f.IntVar(&req.TopCount, "top", 5, "best genotypes to store")
	f.IntVar(&req.TuneAttempts, "tune-attempts", 0, "connection weight tuning attempts per genotype (default from config)")
	f.BoolVar(&showMetrics, "metrics", false, "print operator outcome counters after the run")
	return cmd
}

// printOperatorMetrics prints the operator counters gathered during this
// invocation, one "operator outcome count" line each.
func (a *app) printOperatorMetrics() error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, family := range families {
		if family.GetName() != "fsgeno_evo_operator_applications_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			lines = append(lines, fmt.Sprintf("%s %s %.0f", labels["operator"], labels["outcome"], m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}

func (a *app) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded evolution runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(c *fsgeno.Client) error {
				runs, err := c.Runs(cmd.Context(), fsgeno.RunsRequest{Limit: limit})
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintf(a.stdout, "%s\tfitness=%s\tpop=%d\tgens=%d\tseed=%d\tbest=%.6f\t%s\n",
						r.RunID, r.Fitness, r.PopulationSize, r.Generations, r.Seed, r.FinalBestFitness, r.CreatedAtUTC)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

type runSelector struct {
	runID  string
	latest bool
}

func (s *runSelector) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.runID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&s.latest, "latest", false, "use the most recent run")
}

// lineageCmd reads lineage from the store, so it only finds runs recorded
// in the same process unless the sqlite store is used.
func (a *app) lineageCmd() *cobra.Command {
	var (
		sel   runSelector
		limit int
	)
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Print the lineage of a run as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(c *fsgeno.Client) error {
				lineage, err := c.Lineage(cmd.Context(), fsgeno.LineageRequest{RunID: sel.runID, Latest: sel.latest, Limit: limit})
				if err != nil {
					return err
				}
				rows := stats.LineageRows(lineage)
				return gocsv.Marshal(&rows, a.stdout)
			})
		},
	}
	sel.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records; 0 prints all")
	return cmd
}

func (a *app) operatorsCmd() *cobra.Command {
	var sel runSelector
	cmd := &cobra.Command{
		Use:   "operators",
		Short: "Summarize operator successes and failures of a recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := sel.runID
			if sel.latest {
				if runID != "" {
					return fmt.Errorf("use either run id or latest")
				}
				entries, err := stats.ListRunIndex(a.flags.runsDir)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return fmt.Errorf("no runs available")
				}
				runID = entries[0].RunID
			}
			if runID == "" {
				return fmt.Errorf("operators requires run id or latest")
			}
			rows, ok, err := stats.ReadLineage(a.flags.runsDir, runID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("lineage artifacts not found for run id: %s", runID)
			}
			return a.printOperatorRows(rows)
		},
	}
	sel.bind(cmd)
	return cmd
}

func (a *app) printOperatorRows(lineage []stats.LineageRow) error {
	records := make([]model.LineageRecord, 0, len(lineage))
	for _, row := range lineage {
		records = append(records, row.Record())
	}
	groups := map[string][2]int{}
	for _, row := range stats.OperatorStats(records) {
		fmt.Fprintf(a.stdout, "%s\tok=%d\tfailed=%d\n", row.Operator, row.Succeeded, row.Failed)
		g := mutationGroup(row.Operator)
		if g == "" {
			continue
		}
		counts := groups[g]
		counts[0] += row.Succeeded
		counts[1] += row.Failed
		groups[g] = counts
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.stdout, "group=%s\tok=%d\tfailed=%d\n", name, groups[name][0], groups[name][1])
	}
	return nil
}

func (a *app) exportCmd() *cobra.Command {
	var (
		sel    runSelector
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the artifacts of a run to the exports directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(c *fsgeno.Client) error {
				res, err := c.Export(cmd.Context(), fsgeno.ExportRequest{RunID: sel.runID, Latest: sel.latest, OutDir: outDir})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "exported run=%s dir=%s\n", res.RunID, res.Directory)
				return nil
			})
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default --exports-dir)")
	return cmd
}
