package evo

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Metrics counts operator applications by outcome. A nil *Metrics records
// nothing.
type Metrics struct {
	Applications *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fsgeno",
			Subsystem: "evo",
			Name:      "operator_applications_total",
			Help:      "Genetic operator applications by operator and outcome",
		}, []string{"operator", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fsgeno",
			Subsystem: "evo",
			Name:      "operator_duration_seconds",
			Help:      "Genetic operator duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"operator"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Applications, m.Duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) Observe(operator string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Applications.WithLabelValues(operator, Outcome(err)).Inc()
	m.Duration.WithLabelValues(operator).Observe(elapsed.Seconds())
}

// Outcome classifies an operator result for reporting.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrOperatorFailed):
		return OutcomeFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
