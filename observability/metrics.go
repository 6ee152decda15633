package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TierMetrics records tier engine activity for operational dashboards.
type TierMetrics struct {
	mints     *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	creditOps *prometheus.CounterVec
}

var (
	tierMetricsOnce sync.Once
	tierRegistry    *TierMetrics
)

// Metrics returns the lazily-initialised tier metrics registry.
func Metrics() *TierMetrics {
	tierMetricsOnce.Do(func() {
		tierRegistry = &TierMetrics{
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierforge",
				Subsystem: "engine",
				Name:      "mints_total",
				Help:      "Total tokens minted segmented by mint path.",
			}, []string{"path"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierforge",
				Subsystem: "engine",
				Name:      "payments_rejected_total",
				Help:      "Payments the engine hard-failed segmented by reason.",
			}, []string{"reason"}),
			skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierforge",
				Subsystem: "engine",
				Name:      "tier_claims_skipped_total",
				Help:      "Per-tier claims soft-skipped during payment processing.",
			}, []string{"reason"}),
			creditOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierforge",
				Subsystem: "engine",
				Name:      "credit_updates_total",
				Help:      "Credit balance updates segmented by direction.",
			}, []string{"direction"}),
		}
		prometheus.MustRegister(
			tierRegistry.mints,
			tierRegistry.rejected,
			tierRegistry.skipped,
			tierRegistry.creditOps,
		)
	})
	return tierRegistry
}

// ObserveMint records a successful mint through the named path
// (paid, fallback, manual, reserved).
func (m *TierMetrics) ObserveMint(path string) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(path).Inc()
}

// ObserveRejection records a hard-failed payment.
func (m *TierMetrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// ObserveSkip records a soft-skipped per-tier claim.
func (m *TierMetrics) ObserveSkip(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

// ObserveCredit records a credit balance change in the given direction
// (increase, decrease).
func (m *TierMetrics) ObserveCredit(direction string) {
	if m == nil {
		return
	}
	m.creditOps.WithLabelValues(direction).Inc()
}
