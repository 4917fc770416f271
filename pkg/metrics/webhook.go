package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records payment webhook processing outcomes per provider.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	outcome  *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook deliveries received.",
	}, []string{"provider"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_outcome",
		Help: "Webhook deliveries by terminal outcome.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(received, outcome)
	return &WebhookMetrics{
		received: received,
		outcome:  outcome,
	}
}

// IncReceived increments the delivery counter for the provider.
func (m *WebhookMetrics) IncReceived(provider string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncOutcome increments the terminal outcome counter for the provider.
func (m *WebhookMetrics) IncOutcome(provider, outcome string) {
	if m == nil || m.outcome == nil {
		return
	}
	m.outcome.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
