package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts order lifecycle side effects.
type OrderMetrics struct {
	inventory     *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewOrderMetrics registers the order counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	inventory := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_adjustments_total",
		Help: "Per-line stock adjustments by operation and outcome.",
	}, []string{"op", "outcome"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmations by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"kind"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Customer notifications by kind and outcome.",
	}, []string{"kind", "outcome"})
	reg.MustRegister(inventory, confirmations, transitions, notifications)
	return &OrderMetrics{
		inventory:     inventory,
		confirmations: confirmations,
		transitions:   transitions,
		notifications: notifications,
	}
}

// IncInventory records one ledger line outcome (applied, skipped, exempt, failed).
func (m *OrderMetrics) IncInventory(op, outcome string) {
	if m == nil || m.inventory == nil {
		return
	}
	m.inventory.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// IncConfirmation records a payment confirmation outcome.
func (m *OrderMetrics) IncConfirmation(outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition records an applied status transition.
func (m *OrderMetrics) IncTransition(kind string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncNotification records a notification dispatch outcome.
func (m *OrderMetrics) IncNotification(kind, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}
