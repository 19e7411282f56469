package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/internal/idgen"
	"github.com/viant/slotor/service/messaging"
)

var (
	// ErrProcessed is returned when a message is acknowledged twice
	ErrProcessed = errors.New("message already processed")
	// ErrClosed is returned when publishing to a closed queue
	ErrClosed = errors.New("queue closed")
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message is an in-memory queue message
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	createdAt  time.Time
	mu         sync.Mutex
	processed  bool
}

// ID returns the message identifier
func (m *Message[T]) ID() string { return m.id }

// Retries returns how many times the message was redelivered
func (m *Message[T]) Retries() int { return m.retryCount }

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	return m.finish()
}

// Nack redelivers the message after RetryDelay until MaxRetries is reached;
// afterwards the message goes to the dead letter list when enabled.
func (m *Message[T]) Nack(err error) error {
	if e := m.finish(); e != nil {
		return e
	}
	q := m.queue
	if m.retryCount < q.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, queue: q, retryCount: m.retryCount + 1, createdAt: clock.Now()}
		go q.redeliver(retry)
		return nil
	}
	if q.config.DeadLetter {
		q.dlqMu.Lock()
		q.dlq = append(q.dlq, m)
		q.dlqMu.Unlock()
	}
	return nil
}

func (m *Message[T]) finish() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	done     chan struct{}
	once     sync.Once
	dlq      []*Message[T]
	dlqMu    sync.Mutex
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
		done:     make(chan struct{}),
	}
}

// Publish adds a new item to the queue, waiting for buffer space until ctx
// is done
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	msg := &Message[T]{id: idgen.New(), payload: *t, queue: q, createdAt: clock.Now()}
	select {
	case <-q.done:
		return ErrClosed
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case <-q.done:
		return nil, ErrClosed
	default:
	}
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) redeliver(msg *Message[T]) {
	timer := time.NewTimer(q.config.RetryDelay)
	defer timer.Stop()
	select {
	case <-q.done:
		return
	case <-timer.C:
	}
	select {
	case q.messages <- msg:
	case <-q.done:
	}
}

// Close releases blocked publishers and consumers
func (q *Queue[T]) Close() {
	q.once.Do(func() { close(q.done) })
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
