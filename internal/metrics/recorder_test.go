package metrics

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder_AllMethodsAreSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncStateCommit("accumulator")
	r.IncSampleResult(SampleAccepted)
	r.ObserveDistance(30)
	r.IncViolation()
	r.IncRollover(true)
	r.SetAccumulatedSeconds(5)
	r.IncPersistFailure("prefs")
}

func TestPrometheusRecorder_Counts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncStateCommit("accumulator")
	r.IncStateCommit("accumulator")
	r.IncSampleResult(SampleDropped)
	r.IncViolation()
	r.IncRollover(true)
	r.IncRollover(false)
	r.SetAccumulatedSeconds(123)
	r.IncPersistFailure("ledger")

	require.Equal(t, 2.0, testutil.ToFloat64(r.stateCommits.WithLabelValues("accumulator")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.sampleResults.WithLabelValues("dropped")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.violations))
	require.Equal(t, 1.0, testutil.ToFloat64(r.rollovers.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.rollovers.WithLabelValues("failed")))
	require.Equal(t, 123.0, testutil.ToFloat64(r.accumulatedSecs))
	require.Equal(t, 1.0, testutil.ToFloat64(r.persistFailures.WithLabelValues("ledger")))
}

func TestPrometheusRecorder_NilReceiverIsSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.IncStateCommit("accumulator")
	r.IncViolation()
	require.NotPanics(t, func() { r.SetAccumulatedSeconds(1) })
}
