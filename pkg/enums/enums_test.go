package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	if got, err := ParsePaymentMethod("card"); err != nil || got != PaymentMethodCard {
		t.Fatalf("expected card, got %q err=%v", got, err)
	}
	if _, err := ParsePaymentMethod("ach"); err == nil {
		t.Fatalf("ach is not accepted by the storefront")
	}
	if !PaymentMethodCard.RequiresRedirect() || PaymentMethodCash.RequiresRedirect() {
		t.Fatalf("only card payments redirect to the hosted page")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusDelivered, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.ok, got)
		}
	}
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() || OrderStatusPending.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
}

func TestParseStatuses(t *testing.T) {
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatalf("unknown order status should fail")
	}
	if got, err := ParsePaymentStatus("succeeded"); err != nil || got != PaymentStatusSucceeded {
		t.Fatalf("expected succeeded, got %q err=%v", got, err)
	}
	if PaymentStatus("paid").IsValid() {
		t.Fatalf("paid is not a storefront payment status")
	}
}
