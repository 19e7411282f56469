// Package controller defines the contract of the adapter that drives the test
// harness instance bound to a slot.
package controller

import (
	"context"
	"errors"

	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/model/test"
)

// ErrUnavailable is returned when the harness of a slot cannot be reached
var ErrUnavailable = errors.New("controller unavailable")

// Controller drives the harness of a slot. A false result with a nil error
// means the harness refused the command.
type Controller interface {
	// Start configures the harness with cfg and starts the first batch
	Start(ctx context.Context, slotIdx int, cfg *test.Config) (bool, error)
	// ContinueBatch starts the next batch with the already applied config
	ContinueBatch(ctx context.Context, slotIdx int) (bool, error)
	// Stop requests the harness to stop the current run
	Stop(ctx context.Context, slotIdx int) (bool, error)
	// ReadStatus returns the coarse harness status
	ReadStatus(ctx context.Context, slotIdx int) (slot.ProcessState, error)
}

// PIDResolver returns the process id of the harness bound to a slot
type PIDResolver func(slotIdx int) (int, bool)
