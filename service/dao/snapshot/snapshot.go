package snapshot

import (
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/dao"
	"github.com/viant/slotor/service/dao/criteria"
)

// Store persists slot snapshots by slot index
type Store = dao.Service[int, slot.Snapshot]

// Key returns the storage key of a snapshot
func Key(s *slot.Snapshot) int {
	return s.SlotIdx
}

// Less orders slot indexes ascending
func Less(a, b int) bool {
	return a < b
}

// Match reports whether s satisfies List parameters
func Match(s *slot.Snapshot, parameters []*dao.Parameter) bool {
	return criteria.FilterByState(string(s.State), parameters)
}

// ValidateKey rejects negative slot indexes
func ValidateKey(slotIdx int) error {
	if slotIdx < 0 {
		return dao.ErrInvalidID
	}
	return nil
}
