package event

import (
	"time"

	"github.com/viant/slotor/internal/clock"
)

// Context identifies the origin of an event
type Context struct {
	SlotIdx   int    `json:"slotIdx"`
	EventType string `json:"eventType"`
	RunID     string `json:"runId,omitempty"`
	Service   string `json:"service,omitempty"`
}

// Event wraps a typed payload with its origin and creation time
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
