package event

import (
	"context"
	"sync/atomic"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/service/messaging"
)

// Publisher publishes typed events. Events are only queued once a listener is
// attached, so an unobserved publisher never fills its queue.
type Publisher[T any] struct {
	queue     messaging.Queue[Event[T]]
	any       *Publisher[any]
	listening atomic.Bool
}

// NewPublisher creates a publisher over queue
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

// Publish queues event for the typed listener and the catch-all listener
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = clock.Now()
	}
	if p.any != nil && p.any.listening.Load() {
		if err := p.any.queue.Publish(ctx, &Event[any]{
			Context:   event.Context,
			CreatedAt: event.CreatedAt,
			Metadata:  event.Metadata,
			Data:      event.Data,
		}); err != nil {
			return err
		}
	}
	if !p.listening.Load() {
		return nil
	}
	return p.queue.Publish(ctx, event)
}

// Consume returns the next queued message. The caller acknowledges it once
// handled, or nacks it to have it redelivered.
func (p *Publisher[T]) Consume(ctx context.Context) (messaging.Message[Event[T]], error) {
	return p.queue.Consume(ctx)
}
