// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics is the central metrics registry, backed by real Prometheus
// collector types rather than hand-rolled atomic counters.
type Metrics struct {
	logger zerolog.Logger
	reg    *prometheus.Registry

	LLMRequests  *prometheus.CounterVec
	LLMLatencyMs *prometheus.HistogramVec
	RecRequests  *prometheus.CounterVec
	RecLatencyMs *prometheus.HistogramVec
}

// NewMetrics registers every collector against a fresh registry.
func NewMetrics(logger zerolog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		logger: logger.With().Str("component", "metrics").Logger(),
		reg:    reg,

		LLMRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_engine_llm_requests_total",
			Help: "Completed LLM calls by outcome (success, failure, auth_error).",
		}, []string{"outcome"}),

		LLMLatencyMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_engine_llm_request_duration_ms",
			Help:    "LLM call latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}, []string{"outcome"}),

		RecRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_engine_recommendation_requests_total",
			Help: "Recommendation requests by strategy and outcome.",
		}, []string{"strategy", "outcome"}),

		RecLatencyMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_engine_recommendation_duration_ms",
			Help:    "Recommendation request latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"strategy"}),
	}
}

// Handler serves /metrics in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
