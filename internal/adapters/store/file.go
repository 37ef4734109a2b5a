package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/fsutil"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

const fileHeader = "# Orchestrator settings. Managed by splitmind; edits are picked up by running servers.\n"

// watchDebounce coalesces the burst of events an atomic rename produces.
const watchDebounce = 100 * time.Millisecond

// FileStore persists the configuration as a YAML document. Writes go through
// an atomic rename so readers never see a partial file. The ETag is a
// fingerprint of the file bytes.
type FileStore struct {
	path     string
	defaults *settings.OrchestratorConfig
	logger   *slog.Logger

	mu    sync.Mutex
	known string
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithDefaults makes Read return cfg while the file does not exist.
func WithDefaults(cfg settings.OrchestratorConfig) FileStoreOption {
	return func(s *FileStore) {
		s.defaults = &cfg
	}
}

// WithFileLogger sets the logger used by Watch.
func WithFileLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore creates a store backed by the YAML file at path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path:   filepath.Clean(path),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Read implements settings.Store.
func (s *FileStore) Read(ctx context.Context) (settings.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return settings.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, etag, err := s.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if s.defaults != nil {
				return settings.Snapshot{Config: *s.defaults}, nil
			}
			return settings.Snapshot{}, ErrNotFound
		}
		return settings.Snapshot{}, err
	}
	s.known = etag
	return settings.Snapshot{Config: cfg, ETag: etag}, nil
}

// Replace implements settings.Store.
func (s *FileStore) Replace(ctx context.Context, cfg settings.OrchestratorConfig, ifMatch string) (settings.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return settings.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := ""
	if _, etag, err := s.load(); err == nil {
		current = etag
	} else if !errors.Is(err, fs.ErrNotExist) && ifMatch != "" {
		// a corrupt file cannot satisfy a precondition
		return settings.Snapshot{}, err
	}
	if err := checkReplace(cfg, ifMatch, current); err != nil {
		return settings.Snapshot{}, err
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return settings.Snapshot{}, core.ErrInternal("encoding settings").WithCause(err)
	}
	data := append([]byte(fileHeader), body...)
	if err := fsutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return settings.Snapshot{}, core.ErrInternal("writing settings file").WithCause(err)
	}

	s.known = fsutil.Fingerprint(data)
	return settings.Snapshot{Config: cfg, ETag: s.known}, nil
}

func (s *FileStore) load() (settings.OrchestratorConfig, string, error) {
	data, err := fsutil.ReadFileScoped(s.path)
	if err != nil {
		return settings.OrchestratorConfig{}, "", err
	}
	var cfg settings.OrchestratorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return settings.OrchestratorConfig{}, "", &core.DomainError{
			Category: core.ErrCatInternal,
			Code:     core.CodeStoreCorrupted,
			Message:  fmt.Sprintf("parsing %s", s.path),
			Cause:    err,
		}
	}
	return cfg, fsutil.Fingerprint(data), nil
}

// Watch reports modifications of the file made by other processes. Writes made
// through this store are not reported. The channel is closed when ctx ends.
func (s *FileStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// watch the directory: atomic renames replace the file inode
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(s.path), err)
	}

	out := make(chan struct{}, 1)
	go s.watchLoop(ctx, watcher, out)
	return out, nil
}

func (s *FileStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)
	defer watcher.Close()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if !s.changedExternally() {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("settings file watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *FileStore) changedExternally() bool {
	data, err := fsutil.ReadFileScoped(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.known != ""
	}
	return fsutil.Fingerprint(data) != s.known
}
