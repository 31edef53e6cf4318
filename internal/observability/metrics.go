package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "subsync"

// Metrics holds the prometheus collectors of the service. A nil *Metrics is a valid no-op.
type Metrics struct {
	processorCalls    *prometheus.HistogramVec
	breakerState      *prometheus.GaugeVec
	webhookEvents     *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	refunds           *prometheus.CounterVec
	refundAmountTotal prometheus.Counter
}

// NewMetrics registers the collectors with reg. Tests pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		processorCalls: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "call_duration_seconds",
				Help:      "Latency of payment processor calls by operation and outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "breaker_state",
				Help:      "Circuit breaker state, 0 closed, 1 half open, 2 open.",
			},
			[]string{"breaker"},
		),
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Processor events received by capability and outcome.",
			},
			[]string{"capability", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notification",
				Name:      "messages_total",
				Help:      "Customer notifications by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		refunds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refund",
				Name:      "attempts_total",
				Help:      "Refund attempts made on cancellation by outcome.",
			},
			[]string{"outcome"},
		),
		refundAmountTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refund",
				Name:      "amount_minor_units_total",
				Help:      "Sum of refunded amounts in minor currency units.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.processorCalls, m.breakerState, m.webhookEvents,
		m.notifications, m.refunds, m.refundAmountTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveProcessorCall records a processor call
func (m *Metrics) ObserveProcessorCall(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.processorCalls.WithLabelValues(operation, outcome(err)).Observe(d.Seconds())
}

// SetBreakerState records the breaker state as reported by gobreaker
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// IncWebhookEvent counts a routed event. outcome is one of processed, duplicate, unhandled, failed.
func (m *Metrics) IncWebhookEvent(capability, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(capability, outcome).Inc()
}

// IncNotification counts a notification by kind and outcome
func (m *Metrics) IncNotification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

// ObserveRefund counts a refund attempt and adds the refunded amount on success
func (m *Metrics) ObserveRefund(err error, amount int64) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(outcome(err)).Inc()
	if err == nil && amount > 0 {
		m.refundAmountTotal.Add(float64(amount))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
