package genotype

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"fsgeno/internal/model"
)

type Signature struct {
	Fingerprint string                `json:"fingerprint"`
	Summary     model.GenotypeSummary `json:"summary"`
}

// ComputeSignature summarizes the tree shape of g. Numeric parameter values
// do not contribute, so genotypes differing only by a change_param share a
// fingerprint.
func ComputeSignature(g *Genotype) Signature {
	shapes := make(map[string]int)
	joints := make(map[string]int)
	classes := make(map[string]int)
	connections := 0
	maxDepth := 0
	neurons := 0

	order := g.PreOrder()
	shape := make([]string, 0, len(order))
	for _, id := range order {
		n := &g.Nodes[id]
		shapes[n.Shape.String()]++
		if n.Parent != NoNode {
			joints[n.JointType().String()]++
		}
		if d := g.Depth(id); d > maxDepth {
			maxDepth = d
		}
		for _, neuron := range n.Neurons {
			classes[neuron.Class]++
			connections += len(neuron.Inputs)
		}
		neurons += len(n.Neurons)
		shape = append(shape, fmt.Sprintf("%c%d/%d", ShapeLetter(n.Shape), len(n.Children), len(n.Neurons)))
	}

	summary := model.GenotypeSummary{
		Nodes:       len(order),
		Neurons:     neurons,
		Connections: connections,
		MaxDepth:    maxDepth,
		Shapes:      shapes,
		Joints:      joints,
	}

	parts := []string{
		fmt.Sprintf("n=%d", summary.Nodes),
		fmt.Sprintf("ne=%d", summary.Neurons),
		fmt.Sprintf("c=%d", summary.Connections),
		fmt.Sprintf("d=%d", summary.MaxDepth),
		"t=" + strings.Join(shape, ","),
	}
	appendDist := func(prefix string, m map[string]int) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%s=%d", prefix, k, m[k]))
		}
	}
	appendDist("j", joints)
	appendDist("cls", classes)

	digest := sha1.Sum([]byte(strings.Join(parts, "|")))
	return Signature{
		Fingerprint: hex.EncodeToString(digest[:8]),
		Summary:     summary,
	}
}
