package evo

import (
	"context"
	"errors"
	"math/rand"
	"sort"

	"fsgeno/internal/genotype"
)

const OpCrossover = "crossover"

// CrossoverResult holds both children and the fraction of each child's
// nodes that came from the other parent.
type CrossoverResult struct {
	ChildA  *genotype.Genotype
	ChildB  *genotype.Genotype
	ChangeA float64
	ChangeB float64
}

// Crossover exchanges one non-root subtree between two parents. Random pairs
// are drawn until one of equal size turns up or Tries pairs are drawn, then
// tried closest sizes first. A pair whose children fail validation is
// dropped and the next one tried; drawing resumes while Tries allows.
// Neurons moved with a subtree lose their inputs because those indexed the
// other parent's neurons.
type Crossover struct {
	Rand    *rand.Rand
	Tries   int
	Options genotype.Options
}

type cutPair struct {
	a, b         genotype.NodeID
	sizeA, sizeB int
	ratio        float64
}

func (c Crossover) Apply(ctx context.Context, a, b *genotype.Genotype) (CrossoverResult, error) {
	if c.Rand == nil {
		return CrossoverResult{}, errors.New("random source is required")
	}
	if a == nil || b == nil {
		return CrossoverResult{}, errors.New("both parents are required")
	}
	if err := ctx.Err(); err != nil {
		return CrossoverResult{}, err
	}
	cutsA, cutsB := nonRootNodes(a), nonRootNodes(b)
	if len(cutsA) == 0 || len(cutsB) == 0 {
		return CrossoverResult{}, failed(OpCrossover, errNoCandidates)
	}

	tries := c.Tries
	if tries <= 0 {
		tries = DefaultTries
	}
	seen := make(map[[2]genotype.NodeID]bool)
	last := errNoCandidates
	for drawn := 0; drawn < tries; {
		var batch []cutPair
		for drawn < tries {
			drawn++
			na := cutsA[c.Rand.Intn(len(cutsA))]
			nb := cutsB[c.Rand.Intn(len(cutsB))]
			if seen[[2]genotype.NodeID{na, nb}] {
				continue
			}
			seen[[2]genotype.NodeID{na, nb}] = true
			sa, sb := len(a.Subtree(na)), len(b.Subtree(nb))
			p := cutPair{a: na, b: nb, sizeA: sa, sizeB: sb, ratio: float64(min(sa, sb)) / float64(max(sa, sb))}
			batch = append(batch, p)
			if p.ratio == 1 {
				break
			}
		}
		sort.SliceStable(batch, func(i, j int) bool { return batch[i].ratio > batch[j].ratio })
		for _, p := range batch {
			if err := ctx.Err(); err != nil {
				return CrossoverResult{}, err
			}
			res, err := exchange(a, b, p, c.Options)
			if err == nil {
				return res, nil
			}
			last = err
		}
	}
	return CrossoverResult{}, failed(OpCrossover, last)
}

func exchange(a, b *genotype.Genotype, p cutPair, opts genotype.Options) (CrossoverResult, error) {
	childA := a.Clone()
	if err := childA.ReplaceSubtree(p.a, b, p.b); err != nil {
		return CrossoverResult{}, err
	}
	childB := b.Clone()
	if err := childB.ReplaceSubtree(p.b, a, p.a); err != nil {
		return CrossoverResult{}, err
	}
	outA, err := finish(childA, opts)
	if err != nil {
		return CrossoverResult{}, err
	}
	outB, err := finish(childB, opts)
	if err != nil {
		return CrossoverResult{}, err
	}
	return CrossoverResult{
		ChildA:  outA,
		ChildB:  outB,
		ChangeA: float64(p.sizeB) / float64(outA.NodeCount()),
		ChangeB: float64(p.sizeA) / float64(outB.NodeCount()),
	}, nil
}

func nonRootNodes(g *genotype.Genotype) []genotype.NodeID {
	ids := g.PreOrder()
	if len(ids) <= 1 {
		return nil
	}
	return ids[1:]
}
