package evo

import (
	"math/rand"
	"testing"

	"fsgeno/internal/genotype"
)

func scoredFrom(t *testing.T, id, text string, fitness float64) ScoredGenotype {
	t.Helper()
	g, err := genotype.Parse(text)
	if err != nil {
		t.Fatalf("parse %s: %v", text, err)
	}
	return ScoredGenotype{ID: id, Genotype: g, Fitness: fitness}
}

func TestTopologySpecieIdentifier(t *testing.T) {
	id := TopologySpecieIdentifier{}
	a := scoredFrom(t, "a", "1.1:EE", 1).Genotype
	b := scoredFrom(t, "b", "1.1:CR", 1).Genotype
	c := scoredFrom(t, "c", "1.1:EEE", 1).Genotype

	if id.Identify(a) != id.Identify(b) {
		t.Fatal("expected same topology species key")
	}
	if id.Identify(a) == id.Identify(c) {
		t.Fatal("expected different topology species key")
	}
}

func TestFingerprintSpecieIdentifier(t *testing.T) {
	id := FingerprintSpecieIdentifier{}
	a := scoredFrom(t, "a", "1.1:EE", 1).Genotype
	b := scoredFrom(t, "b", "1.1:EE{tz=45}", 1).Genotype
	c := scoredFrom(t, "c", "1.1:CR", 1).Genotype

	if id.Identify(a) != id.Identify(b) {
		t.Fatal("expected parameter values to be ignored")
	}
	if id.Identify(a) == id.Identify(c) {
		t.Fatal("expected shapes to change the key")
	}
}

func TestRankScored(t *testing.T) {
	ranked := RankScored([]ScoredGenotype{
		{ID: "b", Fitness: 1},
		{ID: "c", Fitness: 3},
		{ID: "a", Fitness: 1},
	})
	got := []string{ranked[0].ID, ranked[1].ID, ranked[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}
}

func TestEliteSelectorStaysInEliteSet(t *testing.T) {
	ranked := []ScoredGenotype{
		scoredFrom(t, "a", "1.1:E", 3),
		scoredFrom(t, "b", "1.1:E", 2),
		scoredFrom(t, "c", "1.1:E", 1),
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		parent, err := EliteSelector{}.PickParent(rng, ranked, 2)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		if parent.ID == "c" {
			t.Fatal("picked a parent outside the elite set")
		}
	}
	if _, err := (EliteSelector{}).PickParent(rng, ranked, 4); err == nil {
		t.Fatal("expected invalid elite count error")
	}
	if _, err := (EliteSelector{}).PickParent(nil, ranked, 1); err == nil {
		t.Fatal("expected random source error")
	}
}

func TestTournamentSelectorPrefersFitter(t *testing.T) {
	ranked := []ScoredGenotype{
		scoredFrom(t, "a", "1.1:E", 0.9),
		scoredFrom(t, "b", "1.1:E", 0.1),
	}
	selector := TournamentSelector{PoolSize: 2, TournamentSize: 2}
	rng := rand.New(rand.NewSource(3))
	wins := 0
	for i := 0; i < 100; i++ {
		parent, err := selector.PickParent(rng, ranked, 1)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		if parent.ID == "a" {
			wins++
		}
	}
	if wins <= 50 {
		t.Fatalf("expected fitter parent to win most tournaments, got %d/100", wins)
	}
}

func TestSpeciesTournamentSelectorProducesMultiSpeciesParents(t *testing.T) {
	scored := []ScoredGenotype{
		scoredFrom(t, "a0", "1.1:EE", 0.99),
		scoredFrom(t, "a1", "1.1:EE", 0.98),
		scoredFrom(t, "a2", "1.1:EE", 0.97),
		scoredFrom(t, "b0", "1.1:E(E^E)", 0.60),
		scoredFrom(t, "b1", "1.1:E(E^E)", 0.59),
		scoredFrom(t, "b2", "1.1:E(E^E)", 0.58),
	}
	selector := SpeciesTournamentSelector{
		Identifier:     TopologySpecieIdentifier{},
		PoolSize:       len(scored),
		TournamentSize: 2,
	}
	rng := rand.New(rand.NewSource(42))
	seenSpecies := map[string]struct{}{}
	id := TopologySpecieIdentifier{}

	for i := 0; i < 40; i++ {
		parent, err := selector.PickParent(rng, scored, 1)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		seenSpecies[id.Identify(parent.Genotype)] = struct{}{}
	}
	if len(seenSpecies) < 2 {
		t.Fatalf("expected at least 2 species in selected parents, got %d", len(seenSpecies))
	}

	if _, err := (SpeciesTournamentSelector{}).PickParent(rng, scored, 1); err == nil {
		t.Fatal("expected missing identifier error")
	}
}

func TestSizeProportionalPostprocessorPenalizesSize(t *testing.T) {
	scored := []ScoredGenotype{
		scoredFrom(t, "small", "1.1:E", 1),
		scoredFrom(t, "large", "1.1:E[N;N]E[N]E", 1),
	}
	out := SizeProportionalPostprocessor{}.Process(scored)
	if out[0].Fitness <= out[1].Fitness {
		t.Fatalf("expected larger genotype to score lower: %v vs %v", out[0].Fitness, out[1].Fitness)
	}
	if scored[1].Fitness != 1 {
		t.Fatal("postprocessor modified its input")
	}
	noop := NoopFitnessPostprocessor{}.Process(scored)
	if noop[1].Fitness != 1 {
		t.Fatal("noop postprocessor changed fitness")
	}
}

func TestTopologicalMutationPolicies(t *testing.T) {
	g := scoredFrom(t, "g", "1.1:EEEE", 0).Genotype

	if n, err := (ConstTopologicalMutations{Count: 2}).MutationCount(g, 0, nil); err != nil || n != 2 {
		t.Fatalf("const: n=%d err=%v", n, err)
	}
	if _, err := (ConstTopologicalMutations{}).MutationCount(g, 0, nil); err == nil {
		t.Fatal("expected error for zero const count")
	}
	if n, err := (NCountLinearTopologicalMutations{Multiplier: 0.5}).MutationCount(g, 0, nil); err != nil || n != 2 {
		t.Fatalf("linear: n=%d err=%v", n, err)
	}
	if n, err := (NCountExponentialTopologicalMutations{Power: 2, MaxCount: 5}).MutationCount(g, 0, nil); err != nil || n != 5 {
		t.Fatalf("exponential: n=%d err=%v", n, err)
	}
}

func TestPolicyConstructorsResolveConfiguredNames(t *testing.T) {
	g := scoredFrom(t, "g", "1.1:EEEE", 0).Genotype

	policy, err := NewTopologicalMutationPolicy("ncount_linear", 1, 0.5, 0)
	if err != nil {
		t.Fatalf("linear: %v", err)
	}
	if n, _ := policy.MutationCount(g, 0, nil); n != 2 {
		t.Fatalf("linear count = %d, want 2", n)
	}
	policy, err = NewTopologicalMutationPolicy("ncount_exponential", 1, 2, 5)
	if err != nil {
		t.Fatalf("exponential: %v", err)
	}
	if n, _ := policy.MutationCount(g, 0, nil); n != 5 {
		t.Fatalf("exponential count = %d, want 5", n)
	}
	if policy, err = NewTopologicalMutationPolicy("", 3, 0, 0); err != nil || policy.Name() != "const" {
		t.Fatalf("default policy = %v, %v", policy, err)
	}
	if _, err := NewTopologicalMutationPolicy("ncount_linear", 1, 0, 0); err == nil {
		t.Fatal("expected error for zero multiplier")
	}
	if _, err := NewTopologicalMutationPolicy("bogus", 1, 1, 0); err == nil {
		t.Fatal("expected error for unknown policy")
	}

	post, err := NewFitnessPostprocessor("size_proportional")
	if err != nil {
		t.Fatalf("postprocessor: %v", err)
	}
	if _, ok := post.(SizeProportionalPostprocessor); !ok {
		t.Fatalf("postprocessor = %T", post)
	}
	if post, err = NewFitnessPostprocessor(""); err != nil || post.Name() != "none" {
		t.Fatalf("default postprocessor = %v, %v", post, err)
	}
	if _, err := NewFitnessPostprocessor("bogus"); err == nil {
		t.Fatal("expected error for unknown postprocessor")
	}
}
