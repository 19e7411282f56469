package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/slotor/service/messaging"
	"go.uber.org/zap"
)

// Listener consumes events of a publisher on a dedicated goroutine
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	logger    *zap.SugaredLogger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewListener creates a listener
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), logger *zap.SugaredLogger) *Listener[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Stop terminates the listener and waits for the current handler to return
func (l *Listener[T]) Stop() {
	l.cancel()
	l.wg.Wait()
	l.publisher.listening.Store(false)
}

// Start begins consuming events
func (l *Listener[T]) Start() {
	l.publisher.listening.Store(true)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			msg, err := l.publisher.Consume(l.ctx)
			if err != nil {
				if l.ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				l.logger.Warnw("error consuming event", "error", err)
				continue
			}
			if msg != nil {
				l.handle(msg)
			}
		}
	}()
}

// handle acknowledges msg once the handler returns; a panicking handler
// nacks it so the queue redelivers or dead-letters the event.
func (l *Listener[T]) handle(msg messaging.Message[Event[T]]) {
	if err := l.dispatch(msg.T()); err != nil {
		l.logger.Errorw("event handler failed", "error", err)
		if nackErr := msg.Nack(err); nackErr != nil {
			l.logger.Warnw("failed to nack event", "error", nackErr)
		}
		return
	}
	if err := msg.Ack(); err != nil {
		l.logger.Warnw("failed to ack event", "error", err)
	}
}

func (l *Listener[T]) dispatch(event *Event[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()
	if event != nil {
		l.handler(event)
	}
	return nil
}
