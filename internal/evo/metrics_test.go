package evo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountOutcomes(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.Observe(OpAddPart, nil, time.Millisecond)
	m.Observe(OpAddPart, nil, time.Millisecond)
	m.Observe(OpAddPart, failed(OpAddPart, errNoCandidates), time.Millisecond)
	m.Observe(OpRemovePart, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Applications.WithLabelValues(OpAddPart, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Applications.WithLabelValues(OpAddPart, OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Applications.WithLabelValues(OpRemovePart, OutcomeError)))
}

func TestMetricsRejectDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetricsIgnoreObservations(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Observe(OpAddPart, nil, time.Second) })
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeFailed, Outcome(fmt.Errorf("wrapped: %w", ErrOperatorFailed)))
	assert.Equal(t, OutcomeCanceled, Outcome(context.Canceled))
	assert.Equal(t, OutcomeError, Outcome(errors.New("boom")))
}

func TestMutatorRecordsMetrics(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	mut, err := NewMutator(testEnv(2), map[string]float64{OpAddPart: 1}, m)
	require.NoError(t, err)

	out, name, err := mut.Mutate(context.Background(), mustParse(t, "1.1:E"))
	require.NoError(t, err)
	assert.Equal(t, OpAddPart, name)
	assert.Equal(t, 2, out.NodeCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Applications.WithLabelValues(OpAddPart, OutcomeOK)))
}

func TestMutatorTriesDistinctOperators(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	weights := map[string]float64{OpRemovePart: 1, OpRemoveNeuron: 1, OpRemoveNeuroConnection: 1, OpChangeNeuroParam: 1}

	for seed := int64(1); seed <= 10; seed++ {
		mut, err := NewMutator(testEnv(seed), weights, m)
		require.NoError(t, err)
		m.Applications.Reset()

		_, _, err = mut.Mutate(context.Background(), mustParse(t, "1.1:E"))
		require.ErrorIs(t, err, ErrOperatorFailed)

		total := 0.0
		for name := range weights {
			n := testutil.ToFloat64(m.Applications.WithLabelValues(name, OutcomeFailed))
			assert.LessOrEqual(t, n, 1.0, "seed %d: %s drawn twice", seed, name)
			total += n
		}
		assert.Equal(t, 3.0, total, "seed %d", seed)
	}
}
