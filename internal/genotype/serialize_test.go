package genotype

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringCanonicalForms(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1.1,0,0.4:C{x=0.80599;y=0.80599;z=0.80599}", "1.1,0,0.4:C{x=0.80599;y=0.80599;z=0.80599}"},
		{"1.1:EEE", "1.1,0,0.4:EEE"},
		{":E", "1.1,0,0.4:E"},
		{"2,1,0:E", "2,1,0:E"},
		{"1.1:SSiE", "1.1,0,0.4:iSSE"},
		{"1.1:E(E^bC{rx=90})", "1.1,0,0.4:E(E^bC{rx=90})"},
		{"1.1:E(E)", "1.1,0,0.4:EE"},
		{"1.1:aE", "1.1,0,0.4:E"},
		{"1.1:E{z=1;x=2;st=3}", "1.1,0,0.4:E{st=3;x=2;z=1}"},
		{"1.1:E[;_0]", "1.1,0,0.4:E[N;N_0]"},
		{"1.1:E[N_1:0.5_0:1]E[*]", "1.1,0,0.4:E[N_0_1:0.5]E[*]"},
		{"1.1:E[Thr_0:-0.25;Sin]cR", "1.1,0,0.4:E[Thr_0:-0.25;Sin]cR"},
		{"1.1:E(E(C^R)^E[N])", "1.1,0,0.4:E(E(C^R)^E[N])"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, mustParse(t, tc.in).String())
		})
	}
}

func TestFormatPrecision(t *testing.T) {
	g := mustParse(t, "1.123456,0,0.4:E{x=0.123456789;tz=-0.0000001}")

	assert.Equal(t, "1.123,0,0.4:E{tz=0;x=0.123}", g.Format(3))
	assert.Equal(t, "1.12346,0,0.4:E{tz=0;x=0.12346}", g.String())
	assert.Equal(t, "1.123456,0,0.4:E{tz=-0.0000001;x=0.123456789}", g.Format(-1))
}

func paramKeys(n *Node) []string {
	keys := make([]string, 0, len(n.Params))
	for k := range n.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestRoundTripPreservesStructure(t *testing.T) {
	texts := []string{
		"1.1,0,0.4:C{x=0.80599;y=0.80599;z=0.80599}",
		"1.1:EEE",
		"1.3,1,0.2:SSfE[N;*_0:0.333333333](bE[G]{tx=12.5;st=2}^C[|_1:-1.5]{x=0.7;y=0.3;rz=45}^iR{s=1.2})",
		"1.1:E[N](E[N_0](E[N_1])^E[N_2;N_0])",
		"0.000001:E",
	}
	for _, text := range texts {
		text := text
		t.Run(text, func(t *testing.T) {
			original := mustParse(t, text)
			again := mustParse(t, original.String())

			require.Equal(t, original.NodeCount(), again.NodeCount())
			require.Equal(t, original.NeuronCount(), again.NeuronCount())
			a, b := original.PreOrder(), again.PreOrder()
			for i := range a {
				na, nb := original.Node(a[i]), again.Node(b[i])
				assert.Equal(t, paramKeys(na), paramKeys(nb))
				for k, v := range na.Params {
					assert.InDelta(t, v, nb.Params[k], 1e-5)
				}
			}
			assert.Equal(t, original.String(), again.String())
			assert.Equal(t, original.Params.ModifierMultiplier, again.Params.ModifierMultiplier)
		})
	}
}
