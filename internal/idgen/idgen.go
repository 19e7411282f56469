package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier; replace it in tests.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier
func New() string { return NewFunc() }

// RunID returns an identifier for a single test run on a slot
func RunID(slotIdx int) string {
	return fmt.Sprintf("slot-%d-%s", slotIdx, New())
}
