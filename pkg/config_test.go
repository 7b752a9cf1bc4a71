package pkg

import (
	"testing"
	"time"
)

func TestConsumerName(t *testing.T) {
	tests := []struct {
		service, subject, want string
	}{
		{"delivery", "order.ready", "delivery_order_ready"},
		{"order", "delivery.picked_up", "order_delivery_picked_up"},
		{"audit", "order.>", "audit_order_rest"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := ConsumerName(tt.service, tt.subject); got != tt.want {
				t.Errorf("ConsumerName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamName(t *testing.T) {
	if got := StreamName("order"); got != "ORDER_EVENTS" {
		t.Errorf("StreamName() = %q", got)
	}
}

func TestConfigDefaultsWithoutConfig(t *testing.T) {
	if got := StringOr(nil, "bus.kind", BusStream); got != BusStream {
		t.Errorf("StringOr() = %q", got)
	}
	if got := IntOr(nil, "bus.prefetch", 64); got != 64 {
		t.Errorf("IntOr() = %d", got)
	}
	if got := DurationOr(nil, "bus.ack.wait", 30*time.Second); got != 30*time.Second {
		t.Errorf("DurationOr() = %v", got)
	}
	if got := ListOr(nil, "bus.kafka.brokers", []string{"a"}); len(got) != 1 {
		t.Errorf("ListOr() = %v", got)
	}
}
