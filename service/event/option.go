package event

import (
	"github.com/viant/slotor/service/messaging/memory"
	"go.uber.org/zap"
)

type Option func(s *Service)

// WithNewMemoryQueueConfig sets the memory queue configuration factory
func WithNewMemoryQueueConfig(newQueue func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memNewQueueConfig = newQueue
	}
}

// WithLogger sets the logger used by listeners
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
