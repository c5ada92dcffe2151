package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	swapVolume  *prometheus.CounterVec
	sharesMoved *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them on reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Name:      "operations_total",
			Help:      "Pool operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amm",
			Name:      "operation_duration_seconds",
			Help:      "Time spent inside one unit of work.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"operation"}),
		swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Name:      "swap_input_total",
			Help:      "Swap input in base units by direction.",
		}, []string{"direction"}),
		sharesMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Name:      "shares_total",
			Help:      "Pool shares minted and burned.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.swapVolume, m.sharesMoved)
	}
	return m
}

func (m *Metrics) observe(operation string, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeRejected
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}
