package worker

import "go.uber.org/zap"

// Option configures the Pool
type Option func(*Pool)

// WithConfig sets queue capacities
func WithConfig(config Config) Option {
	return func(p *Pool) {
		p.config = config
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}
