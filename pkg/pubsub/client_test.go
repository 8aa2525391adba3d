package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"demo", "orders", "projects/demo/topics/orders"},
		{"demo", " projects/other/topics/orders ", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"demo", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestEventMessageCarriesAttributes(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event, err := NewEvent("order.placed", map[string]string{"order_number": "ORD-1-ABCDEFGHI"}, now)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	msg, err := event.message()
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if msg.Attributes["event_type"] != "order.placed" || msg.Attributes["event_id"] != event.ID {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.OccurredAt.Equal(now) {
		t.Fatalf("unexpected occurred_at %v", decoded.OccurredAt)
	}
	var data map[string]string
	if err := json.Unmarshal(decoded.Data, &data); err != nil || data["order_number"] != "ORD-1-ABCDEFGHI" {
		t.Fatalf("unexpected data %s err=%v", decoded.Data, err)
	}
}

func TestNilPublisherErrors(t *testing.T) {
	var p *EventPublisher
	if err := p.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error from nil publisher")
	}
	var c *Client
	if c.OrderEvents() != nil {
		t.Fatalf("nil client yields no publisher")
	}
}
