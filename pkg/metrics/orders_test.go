package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderMetricsCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncInventory("reserve", "applied")
	m.IncInventory("reserve", "applied")
	m.IncConfirmation("confirmed")
	m.IncTransition("")
	m.IncNotification("order_shipped", "failed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "inventory_adjustments_total", "op", "reserve"); err != nil {
		t.Fatalf("fetch inventory: %v", err)
	} else if got != 2 {
		t.Fatalf("expected inventory=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "payment_confirmations_total", "outcome", "confirmed"); err != nil {
		t.Fatalf("fetch confirmations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected confirmations=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_transitions_total", "kind", "unknown"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected empty kind to be labelled unknown, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_notifications_total", "outcome", "failed"); err != nil {
		t.Fatalf("fetch notifications: %v", err)
	} else if got != 1 {
		t.Fatalf("expected notifications=1, got %f", got)
	}
}

func TestOrderMetricsNilRegistererIsNoop(t *testing.T) {
	var nilMetrics *OrderMetrics
	nilMetrics.IncConfirmation("confirmed")

	m := NewOrderMetrics(nil)
	m.IncInventory("release", "applied")
	m.IncNotification("order_cancelled", "sent")
}
