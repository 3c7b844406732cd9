package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderProcessing, OrderShipped, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderProcessing, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
	if OrderStatus("lost").Valid() {
		t.Errorf("unknown status reported valid")
	}
}

func TestOrderLinesFromCart(t *testing.T) {
	lines := OrderLinesFromCart([]CartLine{{Product: ProductRef{ID: "p1", Name: "Lamp"}, Quantity: 2}})
	if len(lines) != 1 || lines[0].ProductID != "p1" || lines[0].ProductName != "Lamp" || lines[0].Quantity != 2 {
		t.Fatalf("lines = %+v", lines)
	}
}
