package settings

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
)

// ValidationError is a hard constraint violation on a persisted field.
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ValidateConfig checks the hard bounds of a persisted configuration. Stores
// refuse objects that fail here; credential format is not checked.
func ValidateConfig(cfg OrchestratorConfig) ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value interface{}, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if cfg.MaxConcurrentAgents < core.MinConcurrentAgents || cfg.MaxConcurrentAgents > core.MaxConcurrentAgents {
		add("max_concurrent_agents", cfg.MaxConcurrentAgents,
			fmt.Sprintf("must be between %d and %d", core.MinConcurrentAgents, core.MaxConcurrentAgents))
	}
	if cfg.AutoSpawnInterval < core.MinSpawnInterval || cfg.AutoSpawnInterval > core.MaxSpawnInterval {
		add("auto_spawn_interval", cfg.AutoSpawnInterval,
			fmt.Sprintf("must be between %d and %d seconds", core.MinSpawnInterval, core.MaxSpawnInterval))
	}
	if !core.IsValidMergeStrategy(cfg.MergeStrategy) {
		add("merge_strategy", cfg.MergeStrategy,
			fmt.Sprintf("must be one of: %s", strings.Join(core.MergeStrategies, ", ")))
	}
	if strings.TrimSpace(cfg.APIProvider) == "" {
		add("api_provider", cfg.APIProvider, "required")
	}
	if cfg.APIBaseURL != "" {
		u, err := url.Parse(cfg.APIBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("api_base_url", cfg.APIBaseURL, "must be an absolute http(s) URL")
		}
	}
	return errs
}

// AsDomainError wraps validation errors for store callers.
func (e ValidationErrors) AsDomainError() *core.DomainError {
	de := core.ErrValidation(core.CodeInvalidConfig, e.Error())
	for _, ve := range e {
		de.WithDetail(ve.Field, ve.Message)
	}
	return de
}

// Severity grades an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a field-level finding shown next to the edited value. Warnings never
// block a save.
type Issue struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Inspect reports hard errors and advisory warnings for cfg.
func Inspect(cfg OrchestratorConfig, cat *catalog.Catalog) []Issue {
	var issues []Issue
	for _, ve := range ValidateConfig(cfg) {
		issues = append(issues, Issue{Field: ve.Field, Severity: SeverityError, Message: ve.Message})
	}

	switch {
	case cfg.APIKey == "":
		issues = append(issues, Issue{Field: "api_key", Severity: SeverityWarning, Message: "no API key configured"})
	case !IsValidCredential(cfg.APIKey, cfg.APIProvider):
		issues = append(issues, Issue{Field: "api_key", Severity: SeverityWarning,
			Message: fmt.Sprintf("key does not look like a %s credential", providerLabel(cfg.APIProvider, cat))})
	}

	if cat != nil {
		if _, known := cat.Lookup(cfg.APIProvider); known {
			if _, ok := cat.FindModel(cfg.APIProvider, cfg.APIModel); !ok {
				issues = append(issues, Issue{Field: "api_model", Severity: SeverityWarning,
					Message: fmt.Sprintf("model %q is not in the %s catalog", cfg.APIModel, cfg.APIProvider)})
			}
		}
	}

	if cfg.APIProvider == catalog.ProviderAzure {
		if cfg.APIBaseURL == "" {
			issues = append(issues, Issue{Field: "api_base_url", Severity: SeverityWarning, Message: "Azure requires a resource endpoint"})
		}
		if cfg.APIVersion == "" {
			issues = append(issues, Issue{Field: "api_version", Severity: SeverityWarning,
				Message: fmt.Sprintf("Azure requires an API version, e.g. %s", DefaultAzureAPIVersion)})
		}
	}
	return issues
}

// HasErrors reports whether any issue is a hard error.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

func providerLabel(id string, cat *catalog.Catalog) string {
	if cat != nil {
		if p, ok := cat.Lookup(id); ok {
			return p.Name
		}
	}
	return id
}
