// Package bus provides the event bus abstraction used to fan out domain
// events (goal created, conversation turn, sync conflict) between services.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one message on the bus. Subjects equal the event type, so
// subscribers can match on the dotted hierarchy (e.g. "sync.*").
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent builds an event with a fresh id and UTC timestamp. Source names
// the producing service.
func NewEvent(eventType, source string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventHandler consumes one event. Returning an error is logged by the bus
// implementation but does not retry delivery.
type EventHandler func(ctx context.Context, event *Event) error

// Subscription is an active handler registration.
type Subscription interface {
	Unsubscribe() error
	IsValid() bool
}

// EventBus is implemented by the in-memory bus and the NATS bus. Services
// accept the interface so tests can run without a broker.
type EventBus interface {
	Publish(ctx context.Context, subject string, event *Event) error
	Subscribe(subject string, handler EventHandler) (Subscription, error)
	Close()
	IsConnected() bool
}
