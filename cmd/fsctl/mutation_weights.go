package main

import (
	"fmt"
	"sort"
	"strconv"

	"fsgeno/internal/evo"
)

// parseWeightOverrides turns --weight name=value pairs into operator weights.
// Unknown operator names are rejected here so a typo fails before a run.
func parseWeightOverrides(raw map[string]string) (map[string]float64, error) {
	known := make(map[string]struct{})
	for _, name := range evo.ListOperators() {
		known[name] = struct{}{}
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]float64, len(raw))
	for _, name := range names {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown mutation operator %q", name)
		}
		w, err := strconv.ParseFloat(raw[name], 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", name, err)
		}
		if w < 0 {
			return nil, fmt.Errorf("weight for %s must be >= 0, got %g", name, w)
		}
		out[name] = w
	}
	return out, nil
}

// mutationGroup buckets operators for the operator summary.
func mutationGroup(name string) string {
	switch name {
	case evo.OpAddPart, evo.OpRemovePart, evo.OpChangePartType, evo.OpChangeJoint:
		return "body"
	case evo.OpAddParam, evo.OpRemoveParam, evo.OpChangeParam, evo.OpChangeModifier:
		return "params"
	case evo.OpAddNeuron, evo.OpRemoveNeuron, evo.OpChangeNeuroConnection,
		evo.OpAddNeuroConnection, evo.OpRemoveNeuroConnection, evo.OpChangeNeuroParam:
		return "neural"
	case evo.OpCrossover:
		return "crossover"
	default:
		return ""
	}
}
