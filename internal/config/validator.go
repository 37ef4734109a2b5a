package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateStore(&cfg.Store)
	v.validateServer(&cfg.Server)
	v.validateCatalog(&cfg.Catalog)
	v.validateEditor(&cfg.Editor)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	if !core.IsValidLogLevel(cfg.Level) {
		v.addError("log.level", cfg.Level, "must be one of: "+strings.Join(core.LogLevels, ", "))
	}
	if !core.IsValidLogFormat(cfg.Format) {
		v.addError("log.format", cfg.Format, "must be one of: "+strings.Join(core.LogFormats, ", "))
	}
	if cfg.File != "" && !isValidPath(cfg.File) {
		v.addError("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	backend := strings.ToLower(cfg.Backend)
	if !core.IsValidStoreBackend(backend) {
		v.addError("store.backend", cfg.Backend, "must be one of: "+strings.Join(core.StoreBackends, ", "))
		return
	}

	switch backend {
	case core.StoreBackendFile, core.StoreBackendSQLite:
		if cfg.Path == "" {
			v.addError("store.path", cfg.Path, "path required for "+backend+" backend")
		} else if !isValidPath(cfg.Path) {
			v.addError("store.path", cfg.Path, "invalid file path")
		}
	case core.StoreBackendHTTP:
		u, err := url.Parse(cfg.URL)
		if cfg.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			v.addError("store.url", cfg.URL, "absolute http(s) URL required for http backend")
		}
	}

	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err != nil || d < 0 {
			v.addError("store.timeout", cfg.Timeout, "invalid duration format")
		}
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		v.addError("server.addr", cfg.Addr, "must be host:port")
	}
	for _, origin := range cfg.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			v.addError("server.cors_origins", origin, "origin cannot be empty")
		}
	}
}

func (v *Validator) validateCatalog(cfg *CatalogConfig) {
	if cfg.File == "" {
		return
	}
	if _, err := os.Stat(cfg.File); err != nil {
		v.addError("catalog.file", cfg.File, "file not readable")
	}
}

func (v *Validator) validateEditor(cfg *EditorConfig) {
	if d, err := time.ParseDuration(cfg.StatusTTL); err != nil || d < 0 {
		v.addError("editor.status_ttl", cfg.StatusTTL, "invalid duration format")
	}
}

func isValidPath(path string) bool {
	dir := filepath.Dir(path)
	_, err := os.Stat(dir)
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}

// Durations parses the duration-valued settings. Call after ValidateConfig.
func (c *Config) Durations() (storeTimeout, statusTTL time.Duration) {
	if c.Store.Timeout != "" {
		storeTimeout, _ = time.ParseDuration(c.Store.Timeout)
	}
	statusTTL, _ = time.ParseDuration(c.Editor.StatusTTL)
	return storeTimeout, statusTTL
}
