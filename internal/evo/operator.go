package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"fsgeno/internal/genotype"
)

// DefaultTries bounds how many random targets an operator draws before it
// gives up.
const DefaultTries = 20

var (
	// ErrOperatorFailed marks an operator that found no valid edit. The
	// input genotype is never modified in that case.
	ErrOperatorFailed = errors.New("operator failed")

	errNoCandidates = errors.New("no candidates")
)

type Operator interface {
	Name() string
	Apply(ctx context.Context, g *genotype.Genotype) (*genotype.Genotype, error)
}

// Env is shared by the random operators.
type Env struct {
	Rand    *rand.Rand
	Options genotype.Options
	Tries   int
}

func NewEnv(rng *rand.Rand, opts genotype.Options) *Env {
	return &Env{Rand: rng, Options: opts, Tries: DefaultTries}
}

func (e *Env) tries() int {
	if e.Tries <= 0 {
		return DefaultTries
	}
	return e.Tries
}

func (e *Env) check() error {
	if e == nil || e.Rand == nil {
		return errors.New("random source is required")
	}
	return nil
}

// uniform returns a value in [-1, 1).
func (e *Env) uniform() float64 {
	return e.Rand.Float64()*2 - 1
}

func failed(name string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrOperatorFailed, name, reason)
}

// attempt runs edit on fresh clones of g until one yields a genotype that
// survives printing, reparsing and full validation. edit returns
// errNoCandidates to stop early when no target exists at all.
func attempt(ctx context.Context, env *Env, name string, g *genotype.Genotype, edit func(c *genotype.Genotype) error) (*genotype.Genotype, error) {
	if err := env.check(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.New("genotype is required")
	}
	var last error
	for i := 0; i < env.tries(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := g.Clone()
		if err := edit(c); err != nil {
			if errors.Is(err, errNoCandidates) {
				return nil, failed(name, err)
			}
			last = err
			continue
		}
		out, err := finish(c, env.Options)
		if err != nil {
			last = err
			continue
		}
		return out, nil
	}
	if last == nil {
		last = errors.New("retries exhausted")
	}
	return nil, failed(name, last)
}

// finish prints c and parses it back so spans match the new text, then
// validates the whole tree.
func finish(c *genotype.Genotype, opts genotype.Options) (*genotype.Genotype, error) {
	out, err := genotype.ParseWith(c.Format(opts.Precision), opts)
	if err != nil {
		return nil, err
	}
	if err := out.Validate(opts); err != nil {
		return nil, err
	}
	return out, nil
}

func pickNode(env *Env, g *genotype.Genotype, keep func(id genotype.NodeID) bool) (genotype.NodeID, error) {
	var ids []genotype.NodeID
	for _, id := range g.PreOrder() {
		if keep == nil || keep(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return genotype.NoNode, errNoCandidates
	}
	return ids[env.Rand.Intn(len(ids))], nil
}

func notRoot(g *genotype.Genotype) func(genotype.NodeID) bool {
	return func(id genotype.NodeID) bool { return id != g.Root }
}
