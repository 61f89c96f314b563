package genotype

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of decimal places kept when printing.
const DefaultPrecision = 5

func (g *Genotype) String() string {
	return g.Format(DefaultPrecision)
}

// Format prints g rounding every number to precision decimal places. A
// negative precision prints numbers exactly.
func (g *Genotype) Format(precision int) string {
	var b strings.Builder
	b.WriteString(formatMultiplier(g.Params.ModifierMultiplier, precision))
	b.WriteByte(headerSeparator)
	if g.Params.TurnWithRotation {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	b.WriteByte(headerSeparator)
	b.WriteString(formatNumber(g.Params.ParamMutationStrength, precision))
	b.WriteByte(modeSeparator)
	g.writeNode(&b, g.Root, precision)
	return b.String()
}

func (g *Genotype) writeNode(b *strings.Builder, id NodeID, precision int) {
	n := &g.Nodes[id]
	for _, mod := range Modifiers {
		count := n.Modifiers[mod]
		letter := mod
		if count > 0 {
			letter = mod &^ 0x20
		}
		for i := 0; i < abs(count); i++ {
			b.WriteByte(letter)
		}
	}
	if n.Joint != defaultJoint {
		b.WriteByte(n.Joint)
	}
	b.WriteByte(ShapeLetter(n.Shape))

	if len(n.Neurons) > 0 {
		b.WriteByte(neuronStart)
		for i, neuron := range n.Neurons {
			if i > 0 {
				b.WriteByte(neuronSeparator)
			}
			writeNeuron(b, neuron, precision)
		}
		b.WriteByte(neuronEnd)
	}

	if len(n.Params) > 0 {
		b.WriteByte(paramStart)
		first := true
		for _, key := range ParamKeys {
			v, ok := n.Params[key]
			if !ok {
				continue
			}
			if !first {
				b.WriteByte(paramSeparator)
			}
			first = false
			b.WriteString(key)
			b.WriteByte(paramValueSep)
			b.WriteString(formatNumber(v, precision))
		}
		b.WriteByte(paramEnd)
	}

	switch len(n.Children) {
	case 0:
	case 1:
		g.writeNode(b, n.Children[0], precision)
	default:
		b.WriteByte(branchStart)
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(branchSeparator)
			}
			g.writeNode(b, c, precision)
		}
		b.WriteByte(branchEnd)
	}
}

func writeNeuron(b *strings.Builder, n Neuron, precision int) {
	b.WriteString(n.Class)
	indexes := make([]int, 0, len(n.Inputs))
	for idx := range n.Inputs {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		b.WriteByte(neuronInputSep)
		b.WriteString(strconv.Itoa(idx))
		w := roundTo(n.Inputs[idx], precision)
		if w != 1 {
			b.WriteByte(neuronWeightSep)
			b.WriteString(formatNumber(w, precision))
		}
	}
}

func roundTo(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return v
	}
	if r == 0 {
		return 0
	}
	return r
}

func formatNumber(v float64, precision int) string {
	return strconv.FormatFloat(roundTo(v, precision), 'f', -1, 64)
}

// formatMultiplier keeps a multiplier that would round to zero exact, so the
// printed header always parses again.
func formatMultiplier(v float64, precision int) string {
	if roundTo(v, precision) <= 0 {
		return formatNumber(v, -1)
	}
	return formatNumber(v, precision)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
