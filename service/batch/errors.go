package batch

import "errors"

var (
	// ErrAlreadyRunning is returned when a slot already has an active batch run
	ErrAlreadyRunning = errors.New("batch already running")
	// ErrInvalidConfig is returned for a nil or non-positive loop configuration
	ErrInvalidConfig = errors.New("invalid batch config")
)
