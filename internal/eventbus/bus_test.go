package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestReconnectDelayGrowsAndCaps(t *testing.T) {
	base := 500 * time.Millisecond
	max := 30 * time.Second

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		delay := reconnectDelay(attempt, base, max)

		// Jitter adds at most half the computed delay; the cap is hard.
		if delay < base {
			t.Errorf("attempt %d: delay %v below base %v", attempt, delay, base)
		}
		if delay > max {
			t.Errorf("attempt %d: delay %v exceeds cap %v", attempt, delay, max)
		}
		if attempt <= 4 && delay < prev/4 {
			t.Errorf("attempt %d: delay %v collapsed from %v", attempt, delay, prev)
		}
		prev = delay
	}
}

func TestReconnectDelayDefaults(t *testing.T) {
	delay := reconnectDelay(1, 0, 0)
	if delay <= 0 {
		t.Errorf("delay = %v, want positive default", delay)
	}
}

func TestMockPublisherRecordsEvents(t *testing.T) {
	m := NewMockPublisher()

	payload := map[string]string{"orderId": "o-1"}
	if err := m.Publish(context.Background(), "order.created", payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := m.Publish(context.Background(), "order.updated", payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	created := m.ByKey("order.created")
	if len(created) != 1 {
		t.Fatalf("expected 1 order.created event, got %d", len(created))
	}
	var decoded map[string]string
	if err := json.Unmarshal(created[0].Body, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["orderId"] != "o-1" {
		t.Errorf("payload = %v", decoded)
	}
}

func TestMockPublisherFailure(t *testing.T) {
	m := NewMockPublisher()
	m.FailWith = ErrNotConnected

	if err := m.Publish(context.Background(), "order.created", nil); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if len(m.Events) != 0 {
		t.Error("failed publish must not record an event")
	}
}
