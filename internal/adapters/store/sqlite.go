package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

//go:embed migrations/001_orchestrator_config.sql
var migrationV1 string

// SQLiteStore keeps the configuration in a single-row table. Each replace
// stamps a new random revision which serves as the ETag.
type SQLiteStore struct {
	dbPath   string
	db       *sql.DB
	defaults *settings.OrchestratorConfig
}

// SQLiteStoreOption configures a SQLiteStore.
type SQLiteStoreOption func(*SQLiteStore)

// WithSQLiteDefaults makes Read return cfg, with an empty ETag, while the
// table holds no row.
func WithSQLiteDefaults(cfg settings.OrchestratorConfig) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		s.defaults = &cfg
	}
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
func NewSQLiteStore(dbPath string, opts ...SQLiteStoreOption) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection keeps :memory: databases and transactions coherent
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{dbPath: dbPath, db: db}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// table doesn't exist yet
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

const selectConfig = `SELECT max_concurrent_agents, auto_merge, merge_strategy, auto_spawn_interval,
	enabled, api_provider, api_key, api_model, api_base_url, api_version, revision
	FROM orchestrator_config WHERE id = 1`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(row rowScanner) (settings.OrchestratorConfig, string, error) {
	var (
		cfg      settings.OrchestratorConfig
		revision string
	)
	err := row.Scan(
		&cfg.MaxConcurrentAgents,
		&cfg.AutoMerge,
		&cfg.MergeStrategy,
		&cfg.AutoSpawnInterval,
		&cfg.Enabled,
		&cfg.APIProvider,
		&cfg.APIKey,
		&cfg.APIModel,
		&cfg.APIBaseURL,
		&cfg.APIVersion,
		&revision,
	)
	return cfg, revision, err
}

// Read implements settings.Store.
func (s *SQLiteStore) Read(ctx context.Context) (settings.Snapshot, error) {
	cfg, revision, err := scanConfig(s.db.QueryRowContext(ctx, selectConfig))
	if errors.Is(err, sql.ErrNoRows) {
		if s.defaults != nil {
			return settings.Snapshot{Config: *s.defaults}, nil
		}
		return settings.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("reading config: %w", err)
	}
	return settings.Snapshot{Config: cfg, ETag: revision}, nil
}

// Replace implements settings.Store. The revision check and the write happen
// in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, cfg settings.OrchestratorConfig, ifMatch string) (settings.Snapshot, error) {
	if errs := settings.ValidateConfig(cfg); errs.HasErrors() {
		return settings.Snapshot{}, errs.AsDomainError()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current := ""
	_, rev, err := scanConfig(tx.QueryRowContext(ctx, selectConfig))
	switch {
	case err == nil:
		current = rev
	case errors.Is(err, sql.ErrNoRows):
	default:
		return settings.Snapshot{}, fmt.Errorf("reading current revision: %w", err)
	}
	if err := checkReplace(cfg, ifMatch, current); err != nil {
		return settings.Snapshot{}, err
	}

	revision := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orchestrator_config (
			id, max_concurrent_agents, auto_merge, merge_strategy, auto_spawn_interval,
			enabled, api_provider, api_key, api_model, api_base_url, api_version,
			revision, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			max_concurrent_agents = excluded.max_concurrent_agents,
			auto_merge = excluded.auto_merge,
			merge_strategy = excluded.merge_strategy,
			auto_spawn_interval = excluded.auto_spawn_interval,
			enabled = excluded.enabled,
			api_provider = excluded.api_provider,
			api_key = excluded.api_key,
			api_model = excluded.api_model,
			api_base_url = excluded.api_base_url,
			api_version = excluded.api_version,
			revision = excluded.revision,
			updated_at = excluded.updated_at`,
		cfg.MaxConcurrentAgents,
		cfg.AutoMerge,
		cfg.MergeStrategy,
		cfg.AutoSpawnInterval,
		cfg.Enabled,
		cfg.APIProvider,
		cfg.APIKey,
		cfg.APIModel,
		cfg.APIBaseURL,
		cfg.APIVersion,
		revision,
		time.Now().UTC(),
	)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("writing config: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return settings.Snapshot{}, core.ErrInternal("committing config").WithCause(err)
	}
	return settings.Snapshot{Config: cfg, ETag: revision}, nil
}
