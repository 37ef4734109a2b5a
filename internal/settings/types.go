// Package settings implements the orchestrator settings engine: the persisted
// wire object, the editable draft, the codec between them, credential and
// bounds validation, and the Reconciler that drives the draft lifecycle
// against a Store.
package settings

import (
	"context"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
)

// OrchestratorConfig is the canonical persisted configuration. Field names are
// the wire contract shared with the orchestrator and must not change.
type OrchestratorConfig struct {
	MaxConcurrentAgents int    `json:"max_concurrent_agents" yaml:"max_concurrent_agents"`
	AutoMerge           bool   `json:"auto_merge" yaml:"auto_merge"`
	MergeStrategy       string `json:"merge_strategy" yaml:"merge_strategy"`
	AutoSpawnInterval   int    `json:"auto_spawn_interval" yaml:"auto_spawn_interval"`
	Enabled             bool   `json:"enabled" yaml:"enabled"`
	APIProvider         string `json:"api_provider" yaml:"api_provider"`
	APIKey              string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIModel            string `json:"api_model" yaml:"api_model"`
	APIBaseURL          string `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty"`
	// APIVersion carries the provider API version, or the Aliyun application id.
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
}

// Snapshot is a persisted configuration together with the store's version tag.
type Snapshot struct {
	Config OrchestratorConfig
	ETag   string
}

// Store is the external holder of the persisted configuration.
// Replace is whole-object: implementations either persist cfg entirely or fail.
type Store interface {
	// Read returns the current configuration. A missing configuration is
	// reported as a core not-found error.
	Read(ctx context.Context) (Snapshot, error)
	// Replace stores cfg. When ifMatch is non-empty and differs from the
	// current ETag the store returns a core conflict error.
	Replace(ctx context.Context, cfg OrchestratorConfig, ifMatch string) (Snapshot, error)
}

// Default model chosen when a persisted config names no model.
const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultAliyunModel = "qwen-plus"
	// DefaultAzureAPIVersion is the version suggested for Azure OpenAI deployments.
	DefaultAzureAPIVersion = "2024-05-01-preview"
)

// DefaultConfig returns the configuration used to initialise an empty store.
func DefaultConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxConcurrentAgents: 5,
		AutoMerge:           false,
		MergeStrategy:       core.MergeStrategyMerge,
		AutoSpawnInterval:   60,
		Enabled:             false,
		APIProvider:         catalog.ProviderAnthropic,
		APIModel:            DefaultModel,
	}
}

// Draft is the editable form of an OrchestratorConfig. Provider-specific values
// live in Settings rather than in the overloaded api_version column.
type Draft struct {
	MaxConcurrentAgents int
	AutoMerge           bool
	MergeStrategy       string
	AutoSpawnInterval   int
	Enabled             bool
	Provider            string
	APIKey              string
	Model               string
	BaseURL             string
	Settings            ProviderSettings
}

// AppID returns the Aliyun application id carried by the draft, if any.
func (d Draft) AppID() string {
	if s, ok := d.Settings.(AliyunSettings); ok {
		return s.AppID
	}
	return ""
}

// APIVersion returns the literal API version carried by the draft.
func (d Draft) APIVersion() string {
	if d.Settings == nil {
		return ""
	}
	return d.Settings.apiVersion()
}
