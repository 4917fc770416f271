package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records credit ledger operations by type and result.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	credits    *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations",
		Help: "Credit ledger operations by type and result.",
	}, []string{"operation", "result"})
	credits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_credits_moved",
		Help: "Absolute credits moved through the ledger by operation.",
	}, []string{"operation"})
	reg.MustRegister(operations, credits)
	return &LedgerMetrics{
		operations: operations,
		credits:    credits,
	}
}

// IncOperation increments the counter for the named operation and result.
func (m *LedgerMetrics) IncOperation(operation, result string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(result)).Inc()
}

// AddCredits accumulates the absolute amount moved by the named operation.
func (m *LedgerMetrics) AddCredits(operation string, amount int) {
	if m == nil || m.credits == nil {
		return
	}
	if amount < 0 {
		amount = -amount
	}
	m.credits.WithLabelValues(normalizeLabel(operation)).Add(float64(amount))
}
