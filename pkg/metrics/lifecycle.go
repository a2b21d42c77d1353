package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics records order lifecycle operation outcomes.
type LifecycleMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	refunds  prometheus.Counter
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided
// registerer. A nil registerer yields a no-op recorder, which keeps the
// metrics optional in tests.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_operation_duration_seconds",
		Help:    "Duration of order lifecycle operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_operation_success",
		Help: "Successful order lifecycle operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_operation_failure",
		Help: "Failed order lifecycle operations.",
	}, []string{"operation"})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_refunds_total",
		Help: "Wallet refunds issued by cancellations and returns.",
	})
	reg.MustRegister(duration, success, failure, refunds)
	return &LifecycleMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		refunds:  refunds,
	}
}

// ObserveDuration records the duration of the named operation.
func (m *LifecycleMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *LifecycleMetrics) IncSuccess(operation string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *LifecycleMetrics) IncFailure(operation string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncRefund counts a wallet refund issued by a cancellation or return.
func (m *LifecycleMetrics) IncRefund() {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
