package transport

import (
	"context"
	"time"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/service/event"
)

const (
	EventUpdate      = "slot_update"
	EventError       = "slot_error"
	EventTermination = "process_terminated"
)

// DefaultPublishTimeout bounds a single publish
const DefaultPublishTimeout = time.Second

// EventTransport publishes reports through the event service
type EventTransport struct {
	events  *event.Service
	timeout time.Duration
}

// SendUpdate implements Transport
func (t *EventTransport) SendUpdate(ctx context.Context, update *Update) error {
	if update.Timestamp.IsZero() {
		update.Timestamp = clock.Now()
	}
	return publish(ctx, t, update.SlotIdx, EventUpdate, update)
}

// SendError implements Transport
func (t *EventTransport) SendError(ctx context.Context, report *ErrorReport) error {
	if report.Timestamp.IsZero() {
		report.Timestamp = clock.Now()
	}
	return publish(ctx, t, report.SlotIdx, EventError, report)
}

// SendTermination implements Transport
func (t *EventTransport) SendTermination(ctx context.Context, termination *Termination) error {
	if termination.Timestamp.IsZero() {
		termination.Timestamp = clock.Now()
	}
	return publish(ctx, t, termination.SlotIdx, EventTermination, termination)
}

// Events returns the underlying event service
func (t *EventTransport) Events() *event.Service {
	return t.events
}

func publish[T any](ctx context.Context, t *EventTransport, slotIdx int, eventType string, payload *T) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	publisher := event.PublisherOf[T](t.events)
	return publisher.Publish(ctx, event.NewEvent(&event.Context{SlotIdx: slotIdx, EventType: eventType, Service: "slotor"}, *payload))
}

// NewEventTransport creates a transport over events; a non-positive timeout
// uses DefaultPublishTimeout.
func NewEventTransport(events *event.Service, timeout time.Duration) *EventTransport {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &EventTransport{events: events, timeout: timeout}
}

var _ Transport = (*EventTransport)(nil)
