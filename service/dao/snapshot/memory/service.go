package memory

import (
	"context"

	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/dao"
	"github.com/viant/slotor/service/dao/snapshot"
	"github.com/viant/slotor/service/dao/store"
)

// Service keeps slot snapshots in memory
type Service struct {
	*store.MemoryStore[int, slot.Snapshot]
}

var _ snapshot.Store = (*Service)(nil)

// Save validates the slot index and stores a copy of s
func (s *Service) Save(ctx context.Context, snap *slot.Snapshot) error {
	if snap == nil {
		return dao.ErrNilEntity
	}
	if err := snapshot.ValidateKey(snap.SlotIdx); err != nil {
		return err
	}
	snap = clone(snap)
	return s.MemoryStore.Save(ctx, snap)
}

// Load returns a copy of the snapshot of slotIdx
func (s *Service) Load(ctx context.Context, slotIdx int) (*slot.Snapshot, error) {
	ret, err := s.MemoryStore.Load(ctx, slotIdx)
	if err != nil {
		return nil, err
	}
	return clone(ret), nil
}

func clone(s *slot.Snapshot) *slot.Snapshot {
	ret := *s
	if s.ValidEvents != nil {
		ret.ValidEvents = append([]slot.Event(nil), s.ValidEvents...)
	}
	if s.Context.StartedAt != nil {
		startedAt := *s.Context.StartedAt
		ret.Context.StartedAt = &startedAt
	}
	return &ret
}

// New creates a memory snapshot store
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[int, slot.Snapshot](snapshot.Key, snapshot.Less, snapshot.Match)}
}
