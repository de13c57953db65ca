package model

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusConfirmed, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusCompleted},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Fatalf("%s -> %s must be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusConfirmed, OrderStatusCancelled},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCompleted, OrderStatusPending},
		{OrderStatusCancelled, OrderStatusConfirmed},
		{OrderStatusCompleted, OrderStatusCancelled},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Fatalf("%s -> %s must be denied", tr.from, tr.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(OrderStatusCompleted) || !IsTerminal(OrderStatusCancelled) {
		t.Fatalf("completed and cancelled are terminal")
	}
	if IsTerminal(OrderStatusPending) || IsTerminal(OrderStatusDelivered) {
		t.Fatalf("pending and delivered are not terminal")
	}
}

func TestIsValidOrderStatus(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled} {
		if !IsValidOrderStatus(s) {
			t.Fatalf("%s must be valid", s)
		}
	}
	if IsValidOrderStatus("shipped") {
		t.Fatalf("unknown status accepted")
	}
}
