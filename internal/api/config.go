package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// maxConfigBody bounds PUT and validate request bodies.
const maxConfigBody = 1 << 20

// conflictResponse is returned with 412 when If-Match is stale.
type conflictResponse struct {
	Error         string                      `json:"error"`
	Code          string                      `json:"code"`
	CurrentETag   string                      `json:"current_etag"`
	CurrentConfig settings.OrchestratorConfig `json:"current_config"`
}

// validateResponse reports the findings for a posted configuration.
type validateResponse struct {
	Valid  bool             `json:"valid"`
	Issues []settings.Issue `json:"issues"`
}

// handleGetConfig returns the stored configuration with its ETag.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Read(r.Context())
	if err != nil {
		s.logger.Warn("failed to read config", "error", err)
		respondDomainError(w, err)
		return
	}

	if snap.ETag != "" {
		w.Header().Set("ETag", quoteETag(snap.ETag))
		if clientETag := r.Header.Get("If-None-Match"); clientETag != "" && etagMatches(clientETag, snap.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	respondJSON(w, http.StatusOK, s.present(snap.Config))
}

// handleUpdateConfig replaces the whole configuration. If-Match is honoured
// unless force=true.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cfg settings.OrchestratorConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if errs := settings.ValidateConfig(cfg); errs.HasErrors() {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "invalid configuration",
			Code:   core.CodeInvalidConfig,
			Fields: errs,
		})
		return
	}

	if s.redactKeys && cfg.APIKey != "" {
		// a client echoing back the masked key keeps the stored one
		if current, err := s.store.Read(ctx); err == nil && cfg.APIKey == settings.MaskCredential(current.Config.APIKey) {
			cfg.APIKey = current.Config.APIKey
		}
	}

	forceUpdate := r.URL.Query().Get("force") == "true"
	var ifMatch string
	if !forceUpdate {
		ifMatch = unquoteETag(r.Header.Get("If-Match"))
	}

	snap, err := s.store.Replace(ctx, cfg, ifMatch)
	if err != nil {
		if core.IsCategory(err, core.ErrCatConflict) {
			s.respondConflict(w, r, ifMatch)
			return
		}
		s.logger.Error("failed to save config", "error", err)
		respondDomainError(w, err)
		return
	}

	s.logger.Info("orchestrator config replaced",
		"provider", snap.Config.APIProvider,
		"model", snap.Config.APIModel,
		"etag", snap.ETag,
		"forced", forceUpdate,
	)
	if snap.ETag != "" {
		w.Header().Set("ETag", quoteETag(snap.ETag))
	}
	respondJSON(w, http.StatusOK, s.present(snap.Config))
}

func (s *Server) respondConflict(w http.ResponseWriter, r *http.Request, clientETag string) {
	current, err := s.store.Read(r.Context())
	if err != nil {
		s.logger.Error("failed to load current config after conflict", "error", err)
		respondDomainError(w, err)
		return
	}

	s.logger.Warn("config update conflict",
		"client_etag", clientETag,
		"current_etag", current.ETag)

	w.Header().Set("ETag", quoteETag(current.ETag))
	respondJSON(w, http.StatusPreconditionFailed, conflictResponse{
		Error:         "configuration was modified externally",
		Code:          core.CodeConflict,
		CurrentETag:   current.ETag,
		CurrentConfig: s.present(current.Config),
	})
}

// handleValidateConfig reports hard errors and advisories without saving.
func (s *Server) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg settings.OrchestratorConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	issues := settings.Inspect(cfg, s.catalog)
	if issues == nil {
		issues = []settings.Issue{}
	}
	respondJSON(w, http.StatusOK, validateResponse{
		Valid:  !settings.HasErrors(issues),
		Issues: issues,
	})
}

// present applies response redaction.
func (s *Server) present(cfg settings.OrchestratorConfig) settings.OrchestratorConfig {
	if s.redactKeys {
		cfg.APIKey = settings.MaskCredential(cfg.APIKey)
	}
	return cfg
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBody))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func quoteETag(etag string) string {
	return fmt.Sprintf("%q", etag)
}

func unquoteETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}

// etagMatches implements the weak comparison used by If-None-Match.
func etagMatches(header, current string) bool {
	for _, candidate := range strings.Split(header, ",") {
		c := unquoteETag(candidate)
		if c == "*" || c == current {
			return true
		}
	}
	return false
}
