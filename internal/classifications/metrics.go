package classifications

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import outcomes recorded by Metrics.
const (
	OutcomeApplied    = "applied"
	OutcomeDryRun     = "dry_run"
	OutcomeValidation = "validation"
	OutcomeConflict   = "conflict"
	OutcomeBusy       = "busy"
	OutcomeError      = "error"
)

// Metrics tracks import outcomes, durations, and record operations.
type Metrics struct {
	Imports        *prometheus.CounterVec
	ImportDuration prometheus.Histogram
	Records        *prometheus.CounterVec
}

// NewMetrics registers the classification import metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Imports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskana_classification_imports_total",
			Help: "Total number of classification imports by outcome",
		}, []string{"outcome"}),
		ImportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskana_classification_import_duration_seconds",
			Help:    "Duration of classification imports including commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskana_classification_records_total",
			Help: "Total number of classifications written by imports by operation",
		}, []string{"op"}),
	}
}

// ObserveImport records the outcome and duration of one import.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveImport(start time.Time, result *Result, err error) {
	m.ImportDuration.Observe(time.Since(start).Seconds())
	m.Imports.WithLabelValues(outcome(result, err)).Inc()

	if err != nil || result.DryRun {
		return
	}
	m.Records.WithLabelValues("created").Add(float64(result.Created))
	m.Records.WithLabelValues("updated").Add(float64(result.Updated))
	m.Records.WithLabelValues("invalidated").Add(float64(result.Invalidated))
}

func outcome(result *Result, err error) string {
	switch {
	case err == nil && result.DryRun:
		return OutcomeDryRun
	case err == nil:
		return OutcomeApplied
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicate):
		return OutcomeConflict
	case errors.Is(err, ErrBusy):
		return OutcomeBusy
	}
	return OutcomeError
}
