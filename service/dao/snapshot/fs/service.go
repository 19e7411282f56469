package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/slotor/internal/logging"
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/dao"
	"github.com/viant/slotor/service/dao/snapshot"
	"go.uber.org/zap"
)

const filePrefix = "slot-"

// Service implements a filesystem-based snapshot storage, one JSON file per slot
type Service struct {
	basePath string
	fs       afs.Service
	logger   *zap.SugaredLogger
	mu       sync.RWMutex
}

var _ snapshot.Store = (*Service)(nil)

// Save persists a snapshot
func (s *Service) Save(ctx context.Context, snap *slot.Snapshot) error {
	if snap == nil {
		return dao.ErrNilEntity
	}
	if err := snapshot.ValidateKey(snap.SlotIdx); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	filePath := s.snapshotPath(snap.SlotIdx)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save snapshot to file %s: %w", filePath, err)
	}
	return nil
}

// Load retrieves the snapshot of slotIdx
func (s *Service) Load(ctx context.Context, slotIdx int) (*slot.Snapshot, error) {
	if err := snapshot.ValidateKey(slotIdx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	filePath := s.snapshotPath(slotIdx)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if snapshot exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("slot %d: %w", slotIdx, dao.ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	var ret slot.Snapshot
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot data: %w", err)
	}
	return &ret, nil
}

// Delete removes the snapshot of slotIdx
func (s *Service) Delete(ctx context.Context, slotIdx int) error {
	if err := snapshot.ValidateKey(slotIdx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	filePath := s.snapshotPath(slotIdx)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if snapshot exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("slot %d: %w", slotIdx, dao.ErrNotFound)
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// List returns stored snapshots ordered by slot index. Unreadable files are
// logged and skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*slot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot files: %w", err)
	}
	var result []*slot.Snapshot
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		name := object.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warnw("failed to read snapshot file", "url", object.URL(), "error", err)
			continue
		}
		var snap slot.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			s.logger.Warnw("failed to unmarshal snapshot", "url", object.URL(), "error", err)
			continue
		}
		if !snapshot.Match(&snap, parameters) {
			continue
		}
		result = append(result, &snap)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotIdx < result[j].SlotIdx })
	return result, nil
}

func (s *Service) snapshotPath(slotIdx int) string {
	return url.Join(s.basePath, fmt.Sprintf("%s%d.json", filePrefix, slotIdx))
}

// Option customises the fs store
type Option func(*Service)

// WithLogger sets the logger used for skipped files
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

// WithFS overrides the afs service
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// New creates a filesystem snapshot store rooted at basePath
func New(ctx context.Context, basePath string, options ...Option) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	ret := &Service{fs: afs.New(), logger: logging.Nop()}
	for _, opt := range options {
		opt(ret)
	}
	exists, _ := ret.fs.Exists(ctx, basePath)
	if !exists {
		if err := ret.fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	ret.basePath = url.Normalize(basePath, file.Scheme)
	return ret, nil
}
