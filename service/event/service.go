package event

import (
	"reflect"
	"sync"

	"github.com/viant/slotor/internal/logging"
	"github.com/viant/slotor/service/messaging"
	"github.com/viant/slotor/service/messaging/memory"
	"go.uber.org/zap"
)

// Service holds one publisher per event payload type plus a catch-all
// publisher receiving every event.
type Service struct {
	publisher         *Publisher[any]
	listener          *Listener[any]
	typedPublishers   map[reflect.Type]any
	typedListener     map[reflect.Type]stopper
	mux               sync.RWMutex
	queues            []func()
	deadLetters       []func() int
	memNewQueueConfig func(name string) memory.Config
	logger            *zap.SugaredLogger
}

type stopper interface{ Stop() }

// SetListener attaches the catch-all handler, replacing a previous one
func (s *Service) SetListener(handler func(*Event[any])) {
	s.mux.Lock()
	previous := s.listener
	s.listener = NewListener[any](s.publisher, handler, s.logger)
	listener := s.listener
	s.mux.Unlock()
	if previous != nil {
		previous.Stop()
	}
	listener.Start()
}

// Close stops every listener and releases the queues
func (s *Service) Close() {
	s.mux.Lock()
	listeners := make([]stopper, 0, len(s.typedListener)+1)
	if s.listener != nil {
		listeners = append(listeners, s.listener)
		s.listener = nil
	}
	for key, l := range s.typedListener {
		listeners = append(listeners, l)
		delete(s.typedListener, key)
	}
	closers := s.queues
	s.queues = nil
	s.mux.Unlock()
	for _, l := range listeners {
		l.Stop()
	}
	for _, closeFn := range closers {
		closeFn()
	}
}

// DeadLetters returns the number of events whose handler kept failing after
// every redelivery
func (s *Service) DeadLetters() int {
	s.mux.RLock()
	sizes := s.deadLetters
	s.mux.RUnlock()
	ret := 0
	for _, size := range sizes {
		ret += size()
	}
	return ret
}

// New creates an event service backed by in-memory queues
func New(opts ...Option) *Service {
	ret := &Service{
		typedPublishers:   make(map[reflect.Type]any),
		typedListener:     make(map[reflect.Type]stopper),
		memNewQueueConfig: func(string) memory.Config { return memory.DefaultConfig() },
		logger:            logging.Nop(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.publisher = NewPublisher[any](QueueOf[Event[any]](ret, "any"))
	return ret
}

// QueueOf creates a named queue
func QueueOf[T any](s *Service, name string) messaging.Queue[T] {
	queue := memory.NewQueue[T](s.memNewQueueConfig(name))
	s.mux.Lock()
	s.queues = append(s.queues, queue.Close)
	s.deadLetters = append(s.deadLetters, queue.DLQSize)
	s.mux.Unlock()
	return queue
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// SetListenerOf attaches a handler for events of type T
func SetListenerOf[T any](s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	publisher := PublisherOf[T](s)
	listener := NewListener[T](publisher, handler, s.logger)
	s.mux.Lock()
	previous, ok := s.typedListener[key]
	s.typedListener[key] = listener
	s.mux.Unlock()
	if ok {
		previous.Stop()
	}
	listener.Start()
}

// PublisherOf returns the publisher for type T
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}
	queue := QueueOf[Event[T]](s, key.String())
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T](queue)
	publisher.any = s.publisher
	s.typedPublishers[key] = publisher
	return publisher
}
