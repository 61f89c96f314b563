package main

import (
	"testing"

	"fsgeno/internal/evo"
)

func TestParseWeightOverrides(t *testing.T) {
	got, err := parseWeightOverrides(map[string]string{evo.OpAddPart: "2.5", evo.OpRemovePart: "0"})
	if err != nil {
		t.Fatalf("parse overrides: %v", err)
	}
	if got[evo.OpAddPart] != 2.5 || got[evo.OpRemovePart] != 0 {
		t.Fatalf("unexpected overrides: %v", got)
	}

	for name, raw := range map[string]map[string]string{
		"unknown":  {"grow_wings": "1"},
		"negative": {evo.OpAddPart: "-1"},
		"garbage":  {evo.OpAddPart: "lots"},
	} {
		if _, err := parseWeightOverrides(raw); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestMutationGroupCoversOperators(t *testing.T) {
	for _, name := range evo.ListOperators() {
		if mutationGroup(name) == "" {
			t.Fatalf("operator %s has no group", name)
		}
	}
	if got := mutationGroup(evo.OpCrossover); got != "crossover" {
		t.Fatalf("mutationGroup(crossover)=%q", got)
	}
	if got := mutationGroup("set_param_at"); got != "" {
		t.Fatalf("mutationGroup(set_param_at)=%q want empty", got)
	}
}
