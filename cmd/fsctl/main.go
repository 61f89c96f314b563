package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"fsgeno/internal/config"
	"fsgeno/pkg/fsgeno"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type globalFlags struct {
	configPath string
	storeKind  string
	dbPath     string
	runsDir    string
	exportsDir string
	logLevel   string
	weights    map[string]string
}

// app carries the streams and global flags shared by every subcommand.
type app struct {
	flags  globalFlags
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	registry *prometheus.Registry
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "fsctl",
		Short:         "Parse, check, build and evolve fS genotypes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config merged over the built-in defaults")
	pf.StringVar(&a.flags.storeKind, "store", "", "store backend: memory|sqlite (default from config)")
	pf.StringVar(&a.flags.dbPath, "db-path", "", "sqlite database path (default from config)")
	pf.StringVar(&a.flags.runsDir, "runs-dir", "runs", "directory for run artifacts")
	pf.StringVar(&a.flags.exportsDir, "exports-dir", "exports", "directory for exported runs")
	pf.StringVar(&a.flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringToStringVar(&a.flags.weights, "weight", nil, "mutation weight override, name=value (repeatable)")

	root.AddCommand(
		a.parseCmd(),
		a.checkCmd(),
		a.buildCmd(),
		a.newCmd(),
		a.mutateCmd(),
		a.editCmd(),
		a.crossoverCmd(),
		a.saveCmd(),
		a.showCmd(),
		a.listCmd(),
		a.evolveCmd(),
		a.runsCmd(),
		a.lineageCmd(),
		a.operatorsCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.flags.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", a.flags.logLevel)
	}
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})), nil
}

func (a *app) client() (*fsgeno.Client, error) {
	logger, err := a.logger()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return nil, err
	}
	overrides, err := parseWeightOverrides(a.flags.weights)
	if err != nil {
		return nil, err
	}
	for name, w := range overrides {
		cfg.Mutation.Weights[name] = w
	}
	a.registry = prometheus.NewRegistry()
	return fsgeno.New(fsgeno.Options{
		Config:     cfg,
		StoreKind:  a.flags.storeKind,
		DBPath:     a.flags.dbPath,
		RunsDir:    a.flags.runsDir,
		ExportsDir: a.flags.exportsDir,
		Logger:     logger,
		Registerer: a.registry,
	})
}

// withClient opens a client for the duration of fn.
func (a *app) withClient(fn func(c *fsgeno.Client) error) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()
	return fn(c)
}

// genotypeArg returns args[0], or the first non-empty line of stdin when the
// argument is "-" or missing.
func (a *app) genotypeArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	lines, err := readLines(a.stdin)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("no genotype given")
	}
	return lines[0], nil
}

// readLines returns the non-empty, non-comment lines of r.
func readLines(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func readLinesFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}
