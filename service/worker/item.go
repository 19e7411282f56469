package worker

import "context"

// Priority orders queued items; lower values run first
type Priority int

const (
	PriorityImmediate Priority = 0
	PriorityHigh      Priority = 5
	PriorityNormal    Priority = 10
	PriorityLow       Priority = 20
)

func (p Priority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "custom"
}

// Task is a unit of work executed by a worker
type Task func(ctx context.Context) error

// Item is a queued task
type Item struct {
	Priority   Priority
	Seq        uint64
	Name       string
	SlotIdx    int
	Task       Task
	DropIfFull bool
}

func (i *Item) less(other *Item) bool {
	if i.Priority != other.Priority {
		return i.Priority < other.Priority
	}
	return i.Seq < other.Seq
}
