// Package observability exposes provider call and tier exhaustion metrics to Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"modelrouter/internal/core"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// PrometheusHooks records provider calls and tier evaluations. It satisfies
// providers.CallHook and exhaustion.TierObserver.
type PrometheusHooks struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	tierExhausted *prometheus.GaugeVec
}

// NewPrometheusHooks registers the collectors with reg, or the default registerer when nil.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusHooks{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelrouter_provider_requests_total",
				Help: "Total number of provider calls by provider, model and outcome",
			},
			[]string{"provider", "model", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modelrouter_provider_request_duration_seconds",
				Help:    "Provider call latency in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		tierExhausted: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modelrouter_tier_exhausted",
				Help: "1 when every model of the boost tier is unusable at the last evaluation",
			},
			[]string{"tier"},
		),
	}
}

// ObserveCall records one completed provider call.
func (h *PrometheusHooks) ObserveCall(provider, model string, duration time.Duration, err error) {
	h.requests.WithLabelValues(provider, model, outcome(err)).Inc()
	h.duration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveTier records the result of a tier evaluation.
func (h *PrometheusHooks) ObserveTier(tier core.BoostTier, exhausted bool) {
	v := 0.0
	if exhausted {
		v = 1
	}
	h.tierExhausted.WithLabelValues(string(tier)).Set(v)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case core.IsRateLimit(err):
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}
