// Package observability wires metrics and tracing for the message loop.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the orchestration counters exposed on /metrics.
type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	MessageDuration  *prometheus.HistogramVec
	BlockedTotal     *prometheus.CounterVec
	HandoffsTotal    *prometheus.CounterVec
	EscalationsTotal prometheus.Counter
	SearchTotal      *prometheus.CounterVec

	reg prometheus.Registerer
}

// NewMetrics builds and registers the metric set on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mangwale",
			Name:      "messages_total",
			Help:      "Inbound messages by routed intent.",
		}, []string{"intent"}),
		MessageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mangwale",
			Name:      "message_duration_seconds",
			Help:      "End-to-end processing latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		BlockedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mangwale",
			Name:      "blocked_messages_total",
			Help:      "Messages refused by the content filter.",
		}, []string{"reason"}),
		HandoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mangwale",
			Name:      "handoffs_total",
			Help:      "Agent handoffs by source and target.",
		}, []string{"source", "target"}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mangwale",
			Name:      "escalations_total",
			Help:      "Conversations escalated to a human.",
		}),
		SearchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mangwale",
			Name:      "searches_total",
			Help:      "Product searches by branch taken.",
		}, []string{"mode"}),
	}

	m.reg = reg
	reg.MustRegister(
		m.MessagesTotal,
		m.MessageDuration,
		m.BlockedTotal,
		m.HandoffsTotal,
		m.EscalationsTotal,
		m.SearchTotal,
	)
	return m
}

// TrackQueueDrops exposes a background queue's drop counter. dropped must
// be monotonically non-decreasing.
func (m *Metrics) TrackQueueDrops(dropped func() int64) {
	m.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "mangwale",
		Name:      "background_dropped_total",
		Help:      "Fire-and-forget tasks dropped due to backpressure.",
	}, func() float64 { return float64(dropped()) }))
}
