package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsgeno/internal/model"
)

func TestGenotypeCodecRoundTrip(t *testing.T) {
	input := model.GenotypeRecord{
		VersionedRecord: versioned(),
		ID:              "g1",
		Text:            "1.1,0,0.4:C{x=0.80599;y=0.80599;z=0.80599}",
		Summary:         model.GenotypeSummary{Nodes: 1, Shapes: map[string]int{"cuboid": 1}},
	}
	data, err := EncodeGenotype(input)
	require.NoError(t, err)

	output, err := DecodeGenotype(data)
	require.NoError(t, err)
	assert.Equal(t, input.Text, output.Text)
	assert.Equal(t, input.Summary, output.Summary)
}

func TestDecodeGenotypeRejectsVersionMismatch(t *testing.T) {
	data := []byte(`{"schema_version":2,"codec_version":1,"id":"g1","text":"1.1:E"}`)
	_, err := DecodeGenotype(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeLineageRejectsVersionMismatch(t *testing.T) {
	data := []byte(`[{"schema_version":1,"codec_version":1,"genotype_id":"a"},{"schema_version":1,"codec_version":9,"genotype_id":"b"}]`)
	_, err := DecodeLineage(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}
