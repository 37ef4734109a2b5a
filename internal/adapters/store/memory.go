package store

import (
	"context"
	"sync"

	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// MemoryStore keeps the configuration in process. It is used for tests and
// for running the API without persistence.
type MemoryStore struct {
	mu     sync.RWMutex
	cfg    settings.OrchestratorConfig
	etag   string
	exists bool
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates a memory store holding cfg.
func NewMemoryStoreWith(cfg settings.OrchestratorConfig) *MemoryStore {
	return &MemoryStore{cfg: cfg, etag: contentETag(cfg), exists: true}
}

// Read implements settings.Store.
func (s *MemoryStore) Read(ctx context.Context) (settings.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return settings.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return settings.Snapshot{}, ErrNotFound
	}
	return settings.Snapshot{Config: s.cfg, ETag: s.etag}, nil
}

// Replace implements settings.Store.
func (s *MemoryStore) Replace(ctx context.Context, cfg settings.OrchestratorConfig, ifMatch string) (settings.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return settings.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkReplace(cfg, ifMatch, s.etag); err != nil {
		return settings.Snapshot{}, err
	}
	s.cfg = cfg
	s.etag = contentETag(cfg)
	s.exists = true
	return settings.Snapshot{Config: s.cfg, ETag: s.etag}, nil
}
