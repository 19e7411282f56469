package test

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

const (
	// MethodZeroHR is the single-pass method used by preconditions
	MethodZeroHR = "0HR"
	// defaultTestName is shown when the controller sends no name
	defaultTestName = "USB Test"
)

// Precondition describes the optional single-iteration preparatory run
// executed before the main batch loop.
type Precondition struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Method    string `json:"method,omitempty" yaml:"method,omitempty"`
	Capacity  string `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	LoopCount int    `json:"loop_count,omitempty" yaml:"loopCount,omitempty"`
}

// Config is a single logical test request for one slot
type Config struct {
	TestID       string       `json:"test_id,omitempty" yaml:"testId,omitempty"`
	TestName     string       `json:"test_name,omitempty" yaml:"testName,omitempty"`
	JiraNo       string       `json:"jira_no,omitempty" yaml:"jiraNo,omitempty"`
	SampleNo     string       `json:"sample_no,omitempty" yaml:"sampleNo,omitempty"`
	Drive        string       `json:"drive" yaml:"drive"`
	Preset       string       `json:"test_preset,omitempty" yaml:"preset,omitempty"`
	File         string       `json:"test_file,omitempty" yaml:"file,omitempty"`
	Method       string       `json:"method,omitempty" yaml:"method,omitempty"`
	Capacity     string       `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	LoopCount    int          `json:"loop_count" yaml:"loopCount"`
	LoopStep     int          `json:"loop_step,omitempty" yaml:"loopStep,omitempty"`
	Precondition Precondition `json:"precondition" yaml:"precondition"`
}

// ErrInvalidConfig wraps every config validation failure
var ErrInvalidConfig = errors.New("invalid test config")

// Init fills defaults for optional fields
func (c *Config) Init() {
	if c.LoopStep == 0 {
		c.LoopStep = 1
	}
	if c.TestName == "" {
		c.TestName = defaultTestName
	}
	if c.Precondition.Enabled {
		if c.Precondition.Method == "" {
			c.Precondition.Method = MethodZeroHR
		}
		if c.Precondition.LoopCount == 0 {
			c.Precondition.LoopCount = 1
		}
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config was nil", ErrInvalidConfig)
	}
	var err error
	if c.LoopCount < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: loop_count must be at least 1, got %d", ErrInvalidConfig, c.LoopCount))
	}
	if c.LoopStep < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: loop_step must be at least 1, got %d", ErrInvalidConfig, c.LoopStep))
	}
	if c.Drive == "" {
		err = multierr.Append(err, fmt.Errorf("%w: drive is required", ErrInvalidConfig))
	}
	if c.Precondition.Enabled && c.Precondition.LoopCount > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: precondition loop_count must be 1, got %d", ErrInvalidConfig, c.Precondition.LoopCount))
	}
	return err
}

// BatchCount returns ceil(LoopCount/LoopStep)
func (c *Config) BatchCount() int {
	if c.LoopStep <= 0 || c.LoopCount <= 0 {
		return 0
	}
	return (c.LoopCount + c.LoopStep - 1) / c.LoopStep
}

// PreconditionConfig derives the single-iteration config used for the
// precondition run, or nil when no precondition is requested.
func (c *Config) PreconditionConfig() *Config {
	if !c.Precondition.Enabled {
		return nil
	}
	ret := *c
	ret.Method = c.Precondition.Method
	if ret.Method == "" {
		ret.Method = MethodZeroHR
	}
	if c.Precondition.Capacity != "" {
		ret.Capacity = c.Precondition.Capacity
	}
	ret.LoopCount = 1
	ret.LoopStep = 1
	ret.Precondition = Precondition{}
	return &ret
}
