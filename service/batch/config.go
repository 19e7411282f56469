package batch

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config controls harness polling
type Config struct {
	// PollInterval is the delay between harness status reads
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	// PassTimeout bounds the wait for a single batch to finish
	PassTimeout time.Duration `json:"passTimeout" yaml:"passTimeout"`
	// MinPassDuration is the minimum time since the batch was first seen in
	// progress before a pass status is accepted
	MinPassDuration time.Duration `json:"minPassDuration" yaml:"minPassDuration"`
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:    time.Second,
		PassTimeout:     time.Hour,
		MinPassDuration: 3 * time.Second,
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c Config) Validate() error {
	var err error
	if c.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("batch.pollInterval must be > 0"))
	}
	if c.PassTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("batch.passTimeout must be > 0"))
	}
	if c.MinPassDuration < 0 {
		err = multierr.Append(err, fmt.Errorf("batch.minPassDuration must be >= 0"))
	}
	return err
}
