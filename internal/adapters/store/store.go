// Package store provides settings.Store implementations: an in-process
// memory store, a YAML file, a single-row SQLite table, and an HTTP client for
// a remote orchestrator. Every backend validates the whole object before
// replacing it and never applies a partial update.
package store

import (
	"encoding/json"
	"errors"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/fsutil"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

const resourceName = "orchestrator config"

// ErrNotFound is the error returned when no configuration has been stored.
var ErrNotFound = core.ErrNotFound(resourceName, "default")

// Closeable is implemented by stores holding resources.
type Closeable interface {
	Close() error
}

// Close releases a store's resources if it holds any.
func Close(s settings.Store) error {
	if c, ok := s.(Closeable); ok {
		return c.Close()
	}
	return nil
}

// checkReplace validates cfg and the If-Match precondition. current is the
// stored ETag, or "" when nothing is stored yet.
func checkReplace(cfg settings.OrchestratorConfig, ifMatch, current string) error {
	if errs := settings.ValidateConfig(cfg); errs.HasErrors() {
		return errs.AsDomainError()
	}
	if ifMatch != "" && ifMatch != current {
		return core.ErrConflict("configuration was modified by another writer").
			WithDetail("current_etag", current)
	}
	return nil
}

// contentETag fingerprints the canonical JSON encoding of cfg.
func contentETag(cfg settings.OrchestratorConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	return fsutil.Fingerprint(data)
}

// IsNotFound reports whether err means no configuration is stored.
func IsNotFound(err error) bool {
	return core.IsCategory(err, core.ErrCatNotFound)
}

// CurrentETag extracts the store's current ETag from a conflict error, if the
// backend reported one.
func CurrentETag(err error) string {
	var de *core.DomainError
	if !errors.As(err, &de) || de.Details == nil {
		return ""
	}
	s, _ := de.Details["current_etag"].(string)
	return s
}
