package eventbus

import (
	"context"
	"encoding/json"
	"sync"
)

// PublishedEvent is one event recorded by the mock publisher.
type PublishedEvent struct {
	RoutingKey string
	Body       []byte
}

// MockPublisher is an in-memory Publisher for testing.
type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	// FailWith, when set, is returned by every Publish call.
	FailWith error
}

// NewMockPublisher creates an empty mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	if m.FailWith != nil {
		return m.FailWith
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{RoutingKey: routingKey, Body: body})
	return nil
}

// ByKey returns the recorded events published with the given routing key.
func (m *MockPublisher) ByKey(routingKey string) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PublishedEvent
	for _, e := range m.Events {
		if e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}
