package genotype

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fsgeno/internal/nn"
)

// Parse reads an fS genotype. Errors are *ParseError values carrying the
// 0-based offset of the offending character.
func Parse(text string) (*Genotype, error) {
	return ParseWith(text, DefaultOptions())
}

// ParseWith is Parse taking omitted header fields from opts.
func ParseWith(text string, opts Options) (*Genotype, error) {
	sep := strings.IndexByte(text, modeSeparator)
	if sep < 0 {
		return nil, &ParseError{Offset: 0, Msg: "missing ':' after genotype parameters"}
	}
	params, err := parseHeader(text[:sep], opts.HeaderDefaults())
	if err != nil {
		return nil, err
	}

	p := &parser{
		text: text,
		pos:  sep + 1,
		g:    &Genotype{Params: params, Source: text},
	}
	root, err := p.parseNode(NoNode)
	if err != nil {
		return nil, err
	}
	if p.pos != len(text) {
		return nil, p.errorf(p.pos, "unexpected %q after genotype", text[p.pos])
	}
	p.g.Root = root
	return p.g, nil
}

func parseHeader(header string, params Params) (Params, error) {
	fields := strings.Split(header, string(headerSeparator))
	if len(fields) > 3 {
		return Params{}, &ParseError{Offset: offsetOfField(fields, 3) - 1, Msg: "too many genotype parameters"}
	}
	for i, field := range fields {
		if field == "" {
			continue
		}
		off := offsetOfField(fields, i)
		switch i {
		case 0:
			v, ok := parseNumber(field)
			if !ok || v <= 0 {
				return Params{}, &ParseError{Offset: off, Msg: fmt.Sprintf("invalid modifier multiplier %q", field)}
			}
			params.ModifierMultiplier = v
		case 1:
			switch field {
			case "0":
				params.TurnWithRotation = false
			case "1":
				params.TurnWithRotation = true
			default:
				return Params{}, &ParseError{Offset: off, Msg: fmt.Sprintf("turn-with-rotation flag must be 0 or 1, got %q", field)}
			}
		case 2:
			v, ok := parseNumber(field)
			if !ok || v < 0 {
				return Params{}, &ParseError{Offset: off, Msg: fmt.Sprintf("invalid parameter mutation strength %q", field)}
			}
			params.ParamMutationStrength = v
		}
	}
	return params, nil
}

func offsetOfField(fields []string, i int) int {
	off := 0
	for j := 0; j < i; j++ {
		off += len(fields[j]) + 1
	}
	return off
}

// parseNumber accepts finite decimal numbers only.
func parseNumber(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXpPnN_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

type parser struct {
	text string
	pos  int
	g    *Genotype
}

func (p *parser) errorf(offset int, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func isJointLetter(c byte) bool {
	_, ok := jointTypes[c]
	return ok
}

func isModifierLetter(c byte) bool {
	switch c {
	case 'i', 'I', 'f', 'F', 's', 'S':
		return true
	}
	return false
}

func startsNode(c byte) bool {
	_, shape := shapeLetters[c]
	return shape || isJointLetter(c) || isModifierLetter(c)
}

func (p *parser) parseNode(parent NodeID) (NodeID, error) {
	start := p.pos
	n := newNode(parent)
	if err := p.parseModifiers(&n); err != nil {
		return NoNode, err
	}

	if p.pos >= len(p.text) {
		return NoNode, p.errorf(p.pos, "missing part type")
	}
	shape, ok := shapeLetters[p.text[p.pos]]
	if !ok {
		return NoNode, p.errorf(p.pos, "expected part type E, C or R, got %q", p.text[p.pos])
	}
	n.Shape = shape
	p.pos++

	if p.pos < len(p.text) && p.text[p.pos] == neuronStart {
		neurons, err := p.parseNeurons()
		if err != nil {
			return NoNode, err
		}
		n.Neurons = neurons
	}
	if p.pos < len(p.text) && p.text[p.pos] == paramStart {
		if err := p.parseParams(&n); err != nil {
			return NoNode, err
		}
	}

	p.g.Nodes = append(p.g.Nodes, n)
	id := NodeID(len(p.g.Nodes) - 1)
	if err := p.parseChildren(id); err != nil {
		return NoNode, err
	}
	p.g.Nodes[id].Span = Substring{Start: start, Len: p.pos - start}
	return id, nil
}

func (p *parser) parseModifiers(n *Node) error {
	jointSet := false
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		switch {
		case isJointLetter(c):
			if jointSet {
				return p.errorf(p.pos, "more than one joint type")
			}
			n.Joint = c
			jointSet = true
		case isModifierLetter(c):
			lower := c | 0x20
			if c == lower {
				n.Modifiers[lower]--
			} else {
				n.Modifiers[lower]++
			}
			if n.Modifiers[lower] == 0 {
				delete(n.Modifiers, lower)
			}
		default:
			return nil
		}
		p.pos++
	}
	return nil
}

func (p *parser) parseNeurons() ([]Neuron, error) {
	open := p.pos
	end := strings.IndexByte(p.text[open+1:], neuronEnd)
	if end < 0 {
		return nil, p.errorf(open, "unterminated neuron block")
	}
	body := p.text[open+1 : open+1+end]
	off := open + 1
	var neurons []Neuron
	for _, item := range strings.Split(body, string(neuronSeparator)) {
		neuron, err := p.parseNeuron(item, off)
		if err != nil {
			return nil, err
		}
		neurons = append(neurons, neuron)
		off += len(item) + 1
	}
	p.pos = open + end + 2
	return neurons, nil
}

func (p *parser) parseNeuron(item string, off int) (Neuron, error) {
	parts := strings.Split(item, string(neuronInputSep))
	class := parts[0]
	if class == "" {
		class = nn.DefaultClass
	}
	if i := strings.IndexAny(class, "[{}()^=,:"); i >= 0 {
		return Neuron{}, p.errorf(off+i, "invalid character %q in neuron class", class[i])
	}
	neuron := Neuron{Class: class}

	cur := off + len(parts[0]) + 1
	for _, input := range parts[1:] {
		if input == "" {
			return Neuron{}, p.errorf(cur, "empty neuron input")
		}
		idxText, weightText, hasWeight := strings.Cut(input, string(neuronWeightSep))
		idx, err := strconv.Atoi(idxText)
		if err != nil || idx < 0 || strings.ContainsAny(idxText, "+-") {
			return Neuron{}, p.errorf(cur, "invalid neuron input index %q", idxText)
		}
		weight := 1.0
		if hasWeight {
			w, ok := parseNumber(weightText)
			if !ok {
				return Neuron{}, p.errorf(cur+len(idxText)+1, "invalid neuron input weight %q", weightText)
			}
			weight = w
		}
		if neuron.Inputs == nil {
			neuron.Inputs = make(map[int]float64)
		}
		if _, dup := neuron.Inputs[idx]; dup {
			return Neuron{}, p.errorf(cur, "duplicate neuron input %d", idx)
		}
		neuron.Inputs[idx] = weight
		cur += len(input) + 1
	}
	return neuron, nil
}

func (p *parser) parseParams(n *Node) error {
	open := p.pos
	end := strings.IndexByte(p.text[open+1:], paramEnd)
	if end < 0 {
		return p.errorf(open, "unterminated parameter block")
	}
	body := p.text[open+1 : open+1+end]
	if body == "" {
		return p.errorf(open, "empty parameter block")
	}
	off := open + 1
	for _, item := range strings.Split(body, string(paramSeparator)) {
		key, value, ok := strings.Cut(item, string(paramValueSep))
		if !ok {
			return p.errorf(off, "missing '=' in parameter %q", item)
		}
		if _, known := paramSpecs[key]; !known {
			return p.errorf(off, "unknown parameter key %q", key)
		}
		if _, dup := n.Params[key]; dup {
			return p.errorf(off, "duplicate parameter %q", key)
		}
		v, valid := parseNumber(value)
		if !valid {
			return p.errorf(off+len(key)+1, "invalid value %q for parameter %s", value, key)
		}
		n.Params[key] = v
		off += len(item) + 1
	}
	p.pos = open + end + 2
	return nil
}

func (p *parser) parseChildren(id NodeID) error {
	if p.pos >= len(p.text) {
		return nil
	}
	if p.text[p.pos] != branchStart {
		if !startsNode(p.text[p.pos]) {
			return nil
		}
		child, err := p.parseNode(id)
		if err != nil {
			return err
		}
		p.g.Nodes[id].Children = append(p.g.Nodes[id].Children, child)
		return nil
	}

	open := p.pos
	p.pos++
	for {
		if p.pos >= len(p.text) {
			return p.errorf(open, "unterminated branch")
		}
		if c := p.text[p.pos]; c == branchEnd || c == branchSeparator {
			return p.errorf(p.pos, "empty branch")
		}
		child, err := p.parseNode(id)
		if err != nil {
			return err
		}
		p.g.Nodes[id].Children = append(p.g.Nodes[id].Children, child)
		if p.pos >= len(p.text) {
			return p.errorf(open, "unterminated branch")
		}
		switch c := p.text[p.pos]; c {
		case branchSeparator:
			p.pos++
		case branchEnd:
			p.pos++
			return nil
		default:
			return p.errorf(p.pos, "unexpected %q in branch", c)
		}
	}
}
