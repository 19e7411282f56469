package machine

import (
	"time"

	"github.com/viant/slotor/model/slot"
)

const defaultHistoryLimit = 100

// Record is a single entry of the transition history. Forced entries have no
// event and carry the reason of the override.
type Record struct {
	Time   time.Time  `json:"time" yaml:"time"`
	From   slot.State `json:"from" yaml:"from"`
	Event  slot.Event `json:"event,omitempty" yaml:"event,omitempty"`
	To     slot.State `json:"to" yaml:"to"`
	Forced bool       `json:"forced,omitempty" yaml:"forced,omitempty"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (m *Machine) appendHistory(record Record) {
	m.history = append(m.history, record)
	if len(m.history) > m.historyLimit {
		keep := m.historyLimit / 2
		trimmed := make([]Record, keep)
		copy(trimmed, m.history[len(m.history)-keep:])
		m.history = trimmed
	}
}
