// Package metrics exposes prometheus instruments for analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// AnalysesTotal counts analysis runs by entry point, dataset type and outcome.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortly_analyses_total",
			Help: "Total number of analysis runs",
		},
		[]string{"source", "dataset_type", "outcome"},
	)

	// AnalysisDuration tracks how long a full analysis takes.
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohortly_analysis_duration_seconds",
			Help:    "Duration of analysis runs in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"source"},
	)

	// RowsProcessedTotal counts input rows by whether they normalized into an event.
	RowsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortly_rows_processed_total",
			Help: "Total number of input rows processed",
		},
		[]string{"status"},
	)

	// InsightsGeneratedTotal counts insights produced per rule key.
	InsightsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortly_insights_generated_total",
			Help: "Total number of insights generated",
		},
		[]string{"key"},
	)
)

// Run describes one finished analysis.
type Run struct {
	Source      string
	DatasetType string
	ValidRows   int
	FailedRows  int
	InsightKeys []string
	Err         error
}

// ObserveAnalysis records a finished run.
func ObserveAnalysis(run Run, elapsed time.Duration) {
	AnalysisDuration.WithLabelValues(run.Source).Observe(elapsed.Seconds())
	if run.Err != nil {
		AnalysesTotal.WithLabelValues(run.Source, "", OutcomeError).Inc()
		return
	}
	AnalysesTotal.WithLabelValues(run.Source, run.DatasetType, OutcomeSuccess).Inc()
	RowsProcessedTotal.WithLabelValues("valid").Add(float64(run.ValidRows))
	RowsProcessedTotal.WithLabelValues("failed").Add(float64(run.FailedRows))
	for _, key := range run.InsightKeys {
		InsightsGeneratedTotal.WithLabelValues(key).Inc()
	}
}
