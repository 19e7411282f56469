package worker

import (
	"fmt"

	"go.uber.org/multierr"
)

// Config defines queue capacities
type Config struct {
	TopCapacity int `json:"topCapacity" yaml:"topCapacity"`
	// SchedulerCapacity of 0 means SlotCapacity times the number of slots
	SchedulerCapacity int `json:"schedulerCapacity" yaml:"schedulerCapacity"`
	SlotCapacity      int `json:"slotCapacity" yaml:"slotCapacity"`
}

// DefaultConfig returns the default worker configuration
func DefaultConfig() Config {
	return Config{
		TopCapacity:  200,
		SlotCapacity: 50,
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c Config) Validate() error {
	var err error
	if c.TopCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("worker.topCapacity must be > 0"))
	}
	if c.SlotCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("worker.slotCapacity must be > 0"))
	}
	if c.SchedulerCapacity < 0 {
		err = multierr.Append(err, fmt.Errorf("worker.schedulerCapacity must be >= 0"))
	}
	return err
}
