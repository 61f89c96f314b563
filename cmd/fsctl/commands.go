package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fsgeno/internal/genotype"
	"fsgeno/pkg/fsgeno"
)

func (a *app) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [genotype|-]",
		Short: "Parse a genotype and print its canonical form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.genotypeArg(args)
			if err != nil {
				return err
			}
			return a.withClient(func(c *fsgeno.Client) error {
				g, err := c.Parse(text)
				if err != nil {
					return fmt.Errorf("parse error at position %d: %w", genotype.ErrorPosition(err), err)
				}
				sig := genotype.ComputeSignature(g)
				fmt.Fprintln(a.stdout, c.Format(g))
				fmt.Fprintf(a.stdout, "parts=%d neurons=%d connections=%d fingerprint=%s\n",
					sig.Summary.Nodes, sig.Summary.Neurons, sig.Summary.Connections, sig.Fingerprint)
				return nil
			})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	var (
		files   []string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "check [genotype...]",
		Short: "Validate genotypes given as arguments, files or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			texts := append([]string(nil), args...)
			for _, path := range files {
				lines, err := readLinesFromFile(path)
				if err != nil {
					return err
				}
				texts = append(texts, lines...)
			}
			if len(args) == 0 && len(files) == 0 {
				lines, err := readLines(a.stdin)
				if err != nil {
					return err
				}
				texts = lines
			}
			if len(texts) == 0 {
				return fmt.Errorf("no genotypes to check")
			}

			return a.withClient(func(c *fsgeno.Client) error {
				results, err := c.CheckAll(cmd.Context(), texts, workers)
				if err != nil {
					return err
				}
				invalid := 0
				for _, r := range results {
					if r.Valid {
						fmt.Fprintf(a.stdout, "ok\t%s\n", r.Text)
						continue
					}
					invalid++
					fmt.Fprintf(a.stdout, "invalid@%d\t%s\n", r.Position, r.Text)
				}
				if invalid > 0 {
					return fmt.Errorf("%d of %d genotypes invalid", invalid, len(results))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "file with one genotype per line")
	cmd.Flags().IntVar(&workers, "workers", 4, "parallel validation workers")
	return cmd
}

func (a *app) buildCmd() *cobra.Command {
	var mapping bool
	cmd := &cobra.Command{
		Use:   "build [genotype|-]",
		Short: "Build the body and neural network and print them as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.genotypeArg(args)
			if err != nil {
				return err
			}
			return a.withClient(func(c *fsgeno.Client) error {
				m, err := c.Build(text)
				if err != nil {
					return fmt.Errorf("build failed at position %d: %w", genotype.ErrorPosition(err), err)
				}
				if !mapping {
					m.Mapping = nil
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			})
		},
	}
	cmd.Flags().BoolVar(&mapping, "mapping", false, "include genotype-to-model span mapping")
	return cmd
}

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [E|C|R]",
		Short: "Print a single-part genotype with the configured header",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shape := "E"
			if len(args) == 1 {
				shape = args[0]
			}
			return a.withClient(func(c *fsgeno.Client) error {
				g, err := c.NewGenotype(shape)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, c.Format(g))
				return nil
			})
		},
	}
}

func (a *app) mutateCmd() *cobra.Command {
	var (
		operator string
		count    int
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "mutate [genotype|-]",
		Short: "Apply random mutations and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.genotypeArg(args)
			if err != nil {
				return err
			}
			return a.withClient(func(c *fsgeno.Client) error {
				res, err := c.Mutate(cmd.Context(), fsgeno.MutateRequest{
					Text:     text,
					Operator: operator,
					Count:    count,
					Seed:     seed,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, res.Text)
				fmt.Fprintf(a.stderr, "operations: %s\n", strings.Join(res.Operations, "+"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&operator, "op", "", "operator name; empty picks by configured weights")
	cmd.Flags().IntVar(&count, "count", 1, "number of mutations to apply in sequence")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var sets, removals []string
	cmd := &cobra.Command{
		Use:   "edit [genotype|-]",
		Short: "Set parameters or remove neurons at pre-order node positions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.genotypeArg(args)
			if err != nil {
				return err
			}
			return a.withClient(func(c *fsgeno.Client) error {
				res, err := c.Edit(cmd.Context(), fsgeno.EditRequest{
					Text:          text,
					SetParams:     sets,
					RemoveNeurons: removals,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, res.Text)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "parameter edit as node:key=value (repeatable)")
	cmd.Flags().StringArrayVar(&removals, "remove-neuron", nil, "neuron removal as node:local (repeatable)")
	return cmd
}

func (a *app) crossoverCmd() *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "crossover <genotype> <genotype>",
		Short: "Exchange one subtree between two genotypes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(c *fsgeno.Client) error {
				res, err := c.Crossover(cmd.Context(), fsgeno.CrossoverRequest{A: args[0], B: args[1], Seed: seed})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, res.ChildA)
				fmt.Fprintln(a.stdout, res.ChildB)
				fmt.Fprintf(a.stderr, "changed: %.3f %.3f\n", res.ChangeA, res.ChangeB)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func (a *app) saveCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "save [genotype|-]",
		Short: "Validate a genotype and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.genotypeArg(args)
			if err != nil {
				return err
			}
			return a.withClient(func(c *fsgeno.Client) error {
				record, err := c.Save(cmd.Context(), id, text)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, record.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "record id; generated when empty")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored genotype record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(c *fsgeno.Client) error {
				record, err := c.Show(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			})
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored genotypes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(c *fsgeno.Client) error {
				records, err := c.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range records {
					fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", r.ID, r.Fingerprint, r.Text)
				}
				return nil
			})
		},
	}
}
