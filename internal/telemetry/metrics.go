package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricSink is the interface every stage records against. Implementations
// must be safe for concurrent use.
type MetricSink interface {
	Inc(metric string, labels map[string]string, value float64)
	Observe(metric string, labels map[string]string, value float64)
	Set(metric string, labels map[string]string, value float64)
}

// PrometheusMetricSink registers every counter/histogram/gauge named in the
// metric taxonomy once, then routes Inc/Observe/Set calls to them by name.
type PrometheusMetricSink struct {
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetricSink registers the fixed metric taxonomy against reg.
// Pass prometheus.DefaultRegisterer in production, a fresh prometheus.NewRegistry()
// in tests to avoid collisions across test binaries.
func NewPrometheusMetricSink(reg prometheus.Registerer) *PrometheusMetricSink {
	factory := promauto.With(reg)

	s := &PrometheusMetricSink{
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	s.counters["requests_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{Name: "ragcore_requests_total", Help: "Requests handled, by route and terminal status."},
		[]string{"route", "status"},
	)
	s.counters["safety_blocked_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{Name: "ragcore_safety_blocked_total", Help: "Requests blocked by the safety layer."},
		[]string{"layer", "reason"},
	)
	s.counters["pii_detected_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{Name: "ragcore_pii_detected_total", Help: "PII spans detected, by type."},
		[]string{"type"},
	)
	s.counters["hallucination_verdict_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{Name: "ragcore_hallucination_verdict_total", Help: "Grounding verdicts issued, by level."},
		[]string{"level"},
	)
	s.counters["llm_errors_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{Name: "ragcore_llm_errors_total", Help: "LLM call failures, by stage."},
		[]string{"stage"},
	)
	s.counters["feedback_received_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{Name: "ragcore_feedback_received_total", Help: "User feedback events, by rating."},
		[]string{"rating"},
	)
	s.counters["variant_assigned_total"] = factory.NewCounterVec(
		prometheus.CounterOpts{Name: "ragcore_variant_assigned_total", Help: "Feature flag variant assignments."},
		[]string{"flag", "variant"},
	)

	s.histograms["request_duration_seconds"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ragcore_request_duration_seconds", Help: "Per-stage wall-clock duration.", Buckets: prometheus.DefBuckets},
		[]string{"stage"},
	)
	s.histograms["retrieval_cosine_similarity"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ragcore_retrieval_cosine_similarity", Help: "Cosine similarity of retrieved chunks.", Buckets: prometheus.LinearBuckets(0, 0.1, 11)},
		nil,
	)
	s.histograms["tokens_in_total"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ragcore_tokens_in_total", Help: "Prompt tokens sent per generation call.", Buckets: prometheus.ExponentialBuckets(64, 2, 10)},
		nil,
	)
	s.histograms["tokens_out_total"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ragcore_tokens_out_total", Help: "Completion tokens received per generation call.", Buckets: prometheus.ExponentialBuckets(16, 2, 10)},
		nil,
	)
	s.histograms["llm_cost_usd"] = factory.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ragcore_llm_cost_usd", Help: "Per-call LLM cost in USD.", Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12)},
		nil,
	)

	s.gauges["embedding_centroid_shift"] = factory.NewGaugeVec(
		prometheus.GaugeOpts{Name: "ragcore_embedding_centroid_shift", Help: "Drift of the query embedding centroid over a rolling window."},
		nil,
	)
	s.gauges["retrieval_empty_result_rate"] = factory.NewGaugeVec(
		prometheus.GaugeOpts{Name: "ragcore_retrieval_empty_result_rate", Help: "Rolling fraction of retrievals returning zero chunks."},
		nil,
	)
	s.gauges["shadow_budget_remaining_usd"] = factory.NewGaugeVec(
		prometheus.GaugeOpts{Name: "ragcore_shadow_budget_remaining_usd", Help: "Remaining shadow-run spend budget for this process."},
		nil,
	)

	return s
}

func (s *PrometheusMetricSink) Inc(metric string, labels map[string]string, value float64) {
	if c, ok := s.counters[metric]; ok {
		c.With(labels).Add(value)
	}
}

func (s *PrometheusMetricSink) Observe(metric string, labels map[string]string, value float64) {
	if h, ok := s.histograms[metric]; ok {
		h.With(labels).Observe(value)
	}
}

func (s *PrometheusMetricSink) Set(metric string, labels map[string]string, value float64) {
	if g, ok := s.gauges[metric]; ok {
		g.With(labels).Set(value)
	}
}

// NoopMetricSink discards every call; useful in tests that don't assert on
// metrics.
type NoopMetricSink struct{}

func (NoopMetricSink) Inc(string, map[string]string, float64)     {}
func (NoopMetricSink) Observe(string, map[string]string, float64) {}
func (NoopMetricSink) Set(string, map[string]string, float64)     {}
