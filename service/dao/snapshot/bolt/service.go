package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/dao"
	"github.com/viant/slotor/service/dao/snapshot"
	bolt "go.etcd.io/bbolt"
)

var bucketSnapshots = []byte("snapshots")

// Service stores slot snapshots in a bbolt database.
// Keys are big-endian slot indexes so that cursor order is slot order.
type Service struct {
	db   *bolt.DB
	path string
}

var _ snapshot.Store = (*Service)(nil)

// Save persists a snapshot, replacing any previous one of the same slot
func (s *Service) Save(_ context.Context, snap *slot.Snapshot) error {
	if snap == nil {
		return dao.ErrNilEntity
	}
	if err := snapshot.ValidateKey(snap.SlotIdx); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put(key(snap.SlotIdx), data)
	})
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load retrieves the snapshot of slotIdx
func (s *Service) Load(_ context.Context, slotIdx int) (*slot.Snapshot, error) {
	if err := snapshot.ValidateKey(slotIdx); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data = tx.Bucket(bucketSnapshots).Get(key(slotIdx))
		if data == nil {
			return fmt.Errorf("slot %d: %w", slotIdx, dao.ErrNotFound)
		}
		data = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var ret slot.Snapshot
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &ret, nil
}

// Delete removes the snapshot of slotIdx
func (s *Service) Delete(_ context.Context, slotIdx int) error {
	if err := snapshot.ValidateKey(slotIdx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		k := key(slotIdx)
		if bucket.Get(k) == nil {
			return fmt.Errorf("slot %d: %w", slotIdx, dao.ErrNotFound)
		}
		return bucket.Delete(k)
	})
}

// List returns stored snapshots ordered by slot index
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*slot.Snapshot, error) {
	var result []*slot.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			var snap slot.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return fmt.Errorf("unmarshal snapshot %d: %w", binary.BigEndian.Uint32(k), err)
			}
			if snapshot.Match(&snap, parameters) {
				result = append(result, &snap)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Path returns the database file path
func (s *Service) Path() string {
	return s.path
}

// Close closes the database
func (s *Service) Close() error {
	return s.db.Close()
}

func key(slotIdx int) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(slotIdx))
	return k[:]
}

// New opens or creates the database at dbPath
func New(dbPath string) (*Service, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}
	return &Service{db: db, path: dbPath}, nil
}
