package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fsgeno/internal/genotype"
	"fsgeno/internal/stats"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestParseCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "parse", "1.1:E[N]C{x=0.75}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "1.1,0,0.4:E[N]C{x=0.75}" {
		t.Fatalf("unexpected canonical text: %q", lines[0])
	}
	if !strings.Contains(lines[1], "parts=2 neurons=1") {
		t.Fatalf("unexpected summary: %q", lines[1])
	}

	_, _, err = runCLI(t, "", "parse", "1.1:EX")
	if err == nil || !strings.Contains(err.Error(), "position 6") {
		t.Fatalf("expected parse error at position 6, got %v", err)
	}
}

func TestParseCommandReadsStdin(t *testing.T) {
	out, _, err := runCLI(t, "# comment\n\n1.1:C\n", "parse", "-")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasPrefix(out, "1.1,0,0.4:C\n") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genotypes.txt")
	if err := os.WriteFile(path, []byte("1.1:E\n1.1:R{y=0.5;z=0.7}\n"), 0o644); err != nil {
		t.Fatalf("write genotypes: %v", err)
	}

	out, _, err := runCLI(t, "", "check", "1.1:C", "--file", path, "--workers", "2")
	if err == nil || !strings.Contains(err.Error(), "1 of 3 genotypes invalid") {
		t.Fatalf("expected one invalid genotype, got %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 result lines, got %q", out)
	}
	if lines[0] != "ok\t1.1:C" || lines[1] != "ok\t1.1:E" || !strings.HasPrefix(lines[2], "invalid@") {
		t.Fatalf("unexpected results: %q", lines)
	}

	if _, _, err := runCLI(t, "1.1:E\n1.1:EE\n", "check"); err != nil {
		t.Fatalf("check stdin: %v", err)
	}
}

func TestBuildCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "build", "1.1:E[N]E[N_0:2]")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, key := range []string{`"parts"`, `"joints"`, `"neurons"`, `"connections"`} {
		if !strings.Contains(out, key) {
			t.Fatalf("expected %s in model JSON: %s", key, out)
		}
	}
	if strings.Contains(out, `"mapping"`) {
		t.Fatalf("mapping should be omitted by default: %s", out)
	}
}

func TestNewAndMutateCommands(t *testing.T) {
	out, _, err := runCLI(t, "", "new", "R")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if strings.TrimSpace(out) != "1.1,0,0.4:R" {
		t.Fatalf("unexpected new genotype: %q", out)
	}

	out, errOut, err := runCLI(t, "", "mutate", "1.1:E", "--op", "add_part", "--count", "2", "--seed", "5")
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	g, err := genotype.Parse(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("parse mutated genotype: %v", err)
	}
	if g.NodeCount() != 3 {
		t.Fatalf("expected three parts in %q", out)
	}
	if !strings.Contains(errOut, "operations: add_part+add_part") {
		t.Fatalf("unexpected operations report: %q", errOut)
	}
}

func TestCrossoverCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "crossover", "1.1:EE", "1.1:CC")
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if out != "1.1,0,0.4:EC\n1.1,0,0.4:CE\n" {
		t.Fatalf("unexpected children: %q", out)
	}
}

func TestEditCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "edit", "1.1:E[N]C", "--set", "1:x=0.6", "--remove-neuron", "0:0")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if out != "1.1,0,0.4:EC{x=0.6}\n" {
		t.Fatalf("unexpected edit: %q", out)
	}

	_, _, err = runCLI(t, "", "edit", "1.1:E", "--set", "0:q=1")
	if err == nil || !strings.Contains(err.Error(), "unknown parameter key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	_, _, err = runCLI(t, "", "edit", "1.1:E", "--remove-neuron", "3:0")
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected node range error, got %v", err)
	}
}

func TestWeightOverrideRejectsUnknownOperator(t *testing.T) {
	_, _, err := runCLI(t, "", "mutate", "1.1:E", "--weight", "grow_wings=1")
	if err == nil || !strings.Contains(err.Error(), "unknown mutation operator") {
		t.Fatalf("expected unknown operator error, got %v", err)
	}
}

func TestEvolveOperatorsExportCommands(t *testing.T) {
	base := t.TempDir()
	runsDir := filepath.Join(base, "runs")
	exportsDir := filepath.Join(base, "exports")
	common := []string{"--runs-dir", runsDir, "--exports-dir", exportsDir, "--log-level", "warn"}

	args := append([]string{"evolve", "1.1:E", "1.1:C[N]",
		"--pop", "5", "--elite", "1", "--gens", "3", "--seed", "7", "--fitness", "nodes", "--tune-attempts", "2", "--metrics"}, common...)
	out, _, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if !strings.Contains(out, "run_id=") || strings.Count(out, "generation=") != 3 {
		t.Fatalf("unexpected evolve output: %s", out)
	}
	if !strings.Contains(out, "final_species size=") {
		t.Fatalf("expected final species in output: %s", out)
	}
	if !strings.Contains(out, " ok ") {
		t.Fatalf("expected operator counters in output: %s", out)
	}

	entries, err := stats.ListRunIndex(runsDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d (%v)", len(entries), err)
	}
	runID := entries[0].RunID

	out, _, err = runCLI(t, "", append([]string{"runs"}, common...)...)
	if err != nil || !strings.HasPrefix(out, runID) {
		t.Fatalf("runs: %q (%v)", out, err)
	}

	out, _, err = runCLI(t, "", append([]string{"operators", "--latest"}, common...)...)
	if err != nil {
		t.Fatalf("operators: %v", err)
	}
	if !strings.Contains(out, "group=") {
		t.Fatalf("expected grouped operator summary: %s", out)
	}

	out, _, err = runCLI(t, "", append([]string{"export", "--run-id", runID}, common...)...)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportsDir, runID, stats.GenerationsFile)); err != nil {
		t.Fatalf("expected exported generations: %v (%s)", err, out)
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, _, err := runCLI(t, "", "fly"); err == nil {
		t.Fatal("expected unknown command error")
	}
}
