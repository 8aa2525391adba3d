package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order placement outcomes.
type CheckoutMetrics struct {
	placements    *prometheus.CounterVec
	compensations *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_placements_total",
		Help: "Order placement attempts by outcome and payment method.",
	}, []string{"outcome", "payment_method"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_compensations_total",
		Help: "Saga steps undone after a later step failed.",
	}, []string{"step"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_placement_duration_seconds",
		Help:    "Duration of order placement in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(placements, compensations, duration)
	return &CheckoutMetrics{
		placements:    placements,
		compensations: compensations,
		duration:      duration,
	}
}

// ObservePlacement records one placement attempt.
func (c *CheckoutMetrics) ObservePlacement(outcome, paymentMethod string, elapsed time.Duration) {
	if c == nil || c.placements == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	c.placements.WithLabelValues(outcome, normalizeLabel(paymentMethod)).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// IncCompensation counts an undone saga step.
func (c *CheckoutMetrics) IncCompensation(step string) {
	if c == nil || c.compensations == nil {
		return
	}
	c.compensations.WithLabelValues(normalizeLabel(step)).Inc()
}

// RateLimitMetrics counts requests rejected by per-user limits.
type RateLimitMetrics struct {
	rejected *prometheus.CounterVec
}

func NewRateLimitMetrics(reg prometheus.Registerer) *RateLimitMetrics {
	if reg == nil {
		return &RateLimitMetrics{}
	}
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rejected by a fixed-window rate limit.",
	}, []string{"scope"})
	reg.MustRegister(rejected)
	return &RateLimitMetrics{rejected: rejected}
}

func (r *RateLimitMetrics) IncRejected(scope string) {
	if r == nil || r.rejected == nil {
		return
	}
	r.rejected.WithLabelValues(normalizeLabel(scope)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
