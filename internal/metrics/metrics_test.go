package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"cohortly/internal/metrics"
)

func TestObserveAnalysis(t *testing.T) {
	success := metrics.AnalysesTotal.WithLabelValues("test", "ecommerce", metrics.OutcomeSuccess)
	failure := metrics.AnalysesTotal.WithLabelValues("test", "", metrics.OutcomeError)
	valid := metrics.RowsProcessedTotal.WithLabelValues("valid")
	failed := metrics.RowsProcessedTotal.WithLabelValues("failed")
	dropOff := metrics.InsightsGeneratedTotal.WithLabelValues("funnel_drop_off")

	beforeSuccess := testutil.ToFloat64(success)
	beforeFailure := testutil.ToFloat64(failure)
	beforeValid := testutil.ToFloat64(valid)
	beforeFailed := testutil.ToFloat64(failed)
	beforeDropOff := testutil.ToFloat64(dropOff)

	metrics.ObserveAnalysis(metrics.Run{
		Source:      "test",
		DatasetType: "ecommerce",
		ValidRows:   20,
		FailedRows:  2,
		InsightKeys: []string{"funnel_drop_off"},
	}, 15*time.Millisecond)
	metrics.ObserveAnalysis(metrics.Run{Source: "test", Err: errors.New("boom")}, time.Millisecond)

	assert.Equal(t, beforeSuccess+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailure+1, testutil.ToFloat64(failure))
	assert.Equal(t, beforeValid+20, testutil.ToFloat64(valid))
	assert.Equal(t, beforeFailed+2, testutil.ToFloat64(failed))
	assert.Equal(t, beforeDropOff+1, testutil.ToFloat64(dropOff))
}
