package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// StoreCall records a call to the fake store.
type StoreCall struct {
	Method    string
	Config    settings.OrchestratorConfig
	IfMatch   string
	Timestamp time.Time
}

// FakeStore implements settings.Store in memory with scriptable failures.
type FakeStore struct {
	mu      sync.Mutex
	cfg     settings.OrchestratorConfig
	exists  bool
	version int
	calls   []StoreCall

	readErr    error
	replaceErr error
	block      chan struct{}
	entered    chan struct{}
	readBlock  chan struct{}
	readEnter  chan struct{}
}

// NewFakeStore creates a fake store holding cfg.
func NewFakeStore(cfg settings.OrchestratorConfig) *FakeStore {
	return &FakeStore{cfg: cfg, exists: true, version: 1}
}

// NewEmptyFakeStore creates a fake store with no configuration.
func NewEmptyFakeStore() *FakeStore {
	return &FakeStore{}
}

// WithReadError makes subsequent reads fail.
func (s *FakeStore) WithReadError(err error) *FakeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
	return s
}

// WithReplaceError makes subsequent replaces fail.
func (s *FakeStore) WithReplaceError(err error) *FakeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceErr = err
	return s
}

// BlockReplace makes Replace wait until Unblock is called. The returned
// channel is closed when a Replace call starts waiting.
func (s *FakeStore) BlockReplace() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = make(chan struct{})
	s.entered = make(chan struct{})
	return s.entered
}

// Unblock releases a Replace held by BlockReplace.
func (s *FakeStore) Unblock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.block != nil {
		close(s.block)
		s.block = nil
	}
}

// BlockRead makes the next Read take its snapshot and then wait until
// UnblockRead is called, like a slow round trip returning data that may be
// stale by the time it arrives. The returned channel is closed when Read
// starts waiting.
func (s *FakeStore) BlockRead() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readBlock = make(chan struct{})
	s.readEnter = make(chan struct{})
	return s.readEnter
}

// UnblockRead releases a Read held by BlockRead.
func (s *FakeStore) UnblockRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readBlock != nil {
		close(s.readBlock)
		s.readBlock = nil
	}
}

// Set replaces the stored configuration out of band, as another editor would.
func (s *FakeStore) Set(cfg settings.OrchestratorConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.exists = true
	s.version++
}

// Current returns the stored configuration.
func (s *FakeStore) Current() settings.OrchestratorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Read implements settings.Store.
func (s *FakeStore) Read(ctx context.Context) (settings.Snapshot, error) {
	snap, err := s.read(ctx)
	s.mu.Lock()
	block, entered := s.readBlock, s.readEnter
	s.readEnter = nil
	s.mu.Unlock()

	if block != nil {
		if entered != nil {
			close(entered)
		}
		select {
		case <-block:
		case <-ctx.Done():
			return settings.Snapshot{}, ctx.Err()
		}
	}
	return snap, err
}

func (s *FakeStore) read(ctx context.Context) (settings.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Read", settings.OrchestratorConfig{}, "")
	if err := ctx.Err(); err != nil {
		return settings.Snapshot{}, err
	}
	if s.readErr != nil {
		return settings.Snapshot{}, s.readErr
	}
	if !s.exists {
		return settings.Snapshot{}, core.ErrNotFound("orchestrator config", "default")
	}
	return settings.Snapshot{Config: s.cfg, ETag: s.etag()}, nil
}

// Replace implements settings.Store.
func (s *FakeStore) Replace(ctx context.Context, cfg settings.OrchestratorConfig, ifMatch string) (settings.Snapshot, error) {
	s.mu.Lock()
	s.record("Replace", cfg, ifMatch)
	block, entered := s.block, s.entered
	s.mu.Unlock()

	if block != nil {
		close(entered)
		select {
		case <-block:
		case <-ctx.Done():
			return settings.Snapshot{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return settings.Snapshot{}, s.replaceErr
	}
	if ifMatch != "" && s.exists && ifMatch != s.etag() {
		return settings.Snapshot{}, core.ErrConflict("configuration was modified")
	}
	s.cfg = cfg
	s.exists = true
	s.version++
	return settings.Snapshot{Config: s.cfg, ETag: s.etag()}, nil
}

// Calls returns recorded calls.
func (s *FakeStore) Calls() []StoreCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoreCall(nil), s.calls...)
}

// CallCount returns the number of calls to method.
func (s *FakeStore) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastReplace returns the most recent Replace call.
func (s *FakeStore) LastReplace() (StoreCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Method == "Replace" {
			return s.calls[i], true
		}
	}
	return StoreCall{}, false
}

func (s *FakeStore) etag() string {
	return fmt.Sprintf("v%d", s.version)
}

func (s *FakeStore) record(method string, cfg settings.OrchestratorConfig, ifMatch string) {
	s.calls = append(s.calls, StoreCall{
		Method:    method,
		Config:    cfg,
		IfMatch:   ifMatch,
		Timestamp: time.Now(),
	})
}
