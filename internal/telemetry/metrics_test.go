package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricSink_IncIncrementsNamedCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusMetricSink(reg)

	labels := map[string]string{"route": "RAG", "status": "ok"}
	sink.Inc("requests_total", labels, 1)
	sink.Inc("requests_total", labels, 1)

	counter := sink.counters["requests_total"].With(labels)
	assert.Equal(t, 2.0, testutil.ToFloat64(counter))
}

func TestPrometheusMetricSink_UnknownMetricNameIsANoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusMetricSink(reg)

	require.NotPanics(t, func() {
		sink.Inc("nonexistent_metric", nil, 1)
		sink.Observe("nonexistent_metric", nil, 1)
		sink.Set("nonexistent_metric", nil, 1)
	})
}

func TestPrometheusMetricSink_ObserveAndSetOnKnownMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusMetricSink(reg)

	assert.NotPanics(t, func() {
		sink.Observe("tokens_in_total", nil, 128)
		sink.Set("shadow_budget_remaining_usd", nil, 4.5)
	})
}
