package settings

import (
	"regexp"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
)

// ProviderSettings is the provider-specific part of a draft. Exactly one
// variant exists per provider kind; unknown providers use CustomSettings.
type ProviderSettings interface {
	apiVersion() string
	withAPIVersion(v string) ProviderSettings
}

// AnthropicSettings holds Anthropic-specific values.
type AnthropicSettings struct {
	APIVersion string
}

// OpenAISettings holds OpenAI-specific values.
type OpenAISettings struct {
	APIVersion string
}

// AzureSettings holds Azure OpenAI values. Deployments require an API version.
type AzureSettings struct {
	APIVersion string
}

// AliyunSettings holds Aliyun Bailian values. AppID selects a Bailian
// application; when empty the model API is used directly.
type AliyunSettings struct {
	AppID      string
	APIVersion string
}

// CustomSettings holds values for providers the catalog does not model.
type CustomSettings struct {
	APIVersion string
}

func (s AnthropicSettings) apiVersion() string { return s.APIVersion }
func (s OpenAISettings) apiVersion() string    { return s.APIVersion }
func (s AzureSettings) apiVersion() string     { return s.APIVersion }
func (s AliyunSettings) apiVersion() string    { return s.APIVersion }
func (s CustomSettings) apiVersion() string    { return s.APIVersion }

func (s AnthropicSettings) withAPIVersion(v string) ProviderSettings {
	s.APIVersion = v
	return s
}

func (s OpenAISettings) withAPIVersion(v string) ProviderSettings {
	s.APIVersion = v
	return s
}

func (s AzureSettings) withAPIVersion(v string) ProviderSettings {
	s.APIVersion = v
	return s
}

func (s AliyunSettings) withAPIVersion(v string) ProviderSettings {
	s.APIVersion = v
	return s
}

func (s CustomSettings) withAPIVersion(v string) ProviderSettings {
	s.APIVersion = v
	return s
}

// columnMapping converts between a settings variant and the flat api_version
// column. It is the only place that knows the column is overloaded.
type columnMapping struct {
	decode func(cfg OrchestratorConfig) ProviderSettings
	encode func(s ProviderSettings) string
	empty  func() ProviderSettings
}

func literalVersion(s ProviderSettings) string {
	return s.apiVersion()
}

var columnMappings = map[string]columnMapping{
	catalog.ProviderAnthropic: {
		decode: func(cfg OrchestratorConfig) ProviderSettings { return AnthropicSettings{APIVersion: cfg.APIVersion} },
		encode: literalVersion,
		empty:  func() ProviderSettings { return AnthropicSettings{} },
	},
	catalog.ProviderOpenAI: {
		decode: func(cfg OrchestratorConfig) ProviderSettings { return OpenAISettings{APIVersion: cfg.APIVersion} },
		encode: literalVersion,
		empty:  func() ProviderSettings { return OpenAISettings{} },
	},
	catalog.ProviderAzure: {
		decode: func(cfg OrchestratorConfig) ProviderSettings { return AzureSettings{APIVersion: cfg.APIVersion} },
		encode: literalVersion,
		empty:  func() ProviderSettings { return AzureSettings{} },
	},
	catalog.ProviderAliyun: {
		decode: decodeAliyun,
		encode: encodeAliyun,
		empty:  func() ProviderSettings { return AliyunSettings{} },
	},
}

var customMapping = columnMapping{
	decode: func(cfg OrchestratorConfig) ProviderSettings { return CustomSettings{APIVersion: cfg.APIVersion} },
	encode: literalVersion,
	empty:  func() ProviderSettings { return CustomSettings{} },
}

func mappingFor(provider string) columnMapping {
	if m, ok := columnMappings[provider]; ok {
		return m
	}
	return customMapping
}

// appPathPattern matches the legacy /apps/{id} segment once embedded in base URLs.
var appPathPattern = regexp.MustCompile(`/apps/([^/?#]+)`)

// AppIDFromBaseURL extracts an application id from a /apps/{id} path segment.
// It returns "" when the URL carries none.
func AppIDFromBaseURL(baseURL string) string {
	m := appPathPattern.FindStringSubmatch(baseURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func decodeAliyun(cfg OrchestratorConfig) ProviderSettings {
	appID := cfg.APIVersion
	if appID == "" {
		appID = AppIDFromBaseURL(cfg.APIBaseURL)
	}
	// the column holds the app id for Aliyun, so no literal version survives decoding
	return AliyunSettings{AppID: appID}
}

func encodeAliyun(s ProviderSettings) string {
	a, ok := s.(AliyunSettings)
	if !ok {
		return s.apiVersion()
	}
	if a.AppID != "" {
		return a.AppID
	}
	return a.APIVersion
}

// Decode hydrates a draft from a persisted configuration. Missing provider and
// model fall back to defaults; it never fails.
func Decode(cfg OrchestratorConfig) Draft {
	provider := cfg.APIProvider
	if provider == "" {
		provider = catalog.ProviderAnthropic
	}
	model := cfg.APIModel
	if model == "" {
		model = DefaultModel
		if provider == catalog.ProviderAliyun {
			model = DefaultAliyunModel
		}
	}

	cfg.APIProvider = provider
	return Draft{
		MaxConcurrentAgents: cfg.MaxConcurrentAgents,
		AutoMerge:           cfg.AutoMerge,
		MergeStrategy:       cfg.MergeStrategy,
		AutoSpawnInterval:   cfg.AutoSpawnInterval,
		Enabled:             cfg.Enabled,
		Provider:            provider,
		APIKey:              cfg.APIKey,
		Model:               model,
		BaseURL:             cfg.APIBaseURL,
		Settings:            mappingFor(provider).decode(cfg),
	}
}

// Encode flattens a draft into the persisted schema. Draft-only values are
// folded into api_version through the provider's column mapping.
func Encode(d Draft) OrchestratorConfig {
	settings := d.Settings
	if settings == nil {
		settings = mappingFor(d.Provider).empty()
	}
	return OrchestratorConfig{
		MaxConcurrentAgents: d.MaxConcurrentAgents,
		AutoMerge:           d.AutoMerge,
		MergeStrategy:       d.MergeStrategy,
		AutoSpawnInterval:   d.AutoSpawnInterval,
		Enabled:             d.Enabled,
		APIProvider:         d.Provider,
		APIKey:              d.APIKey,
		APIModel:            d.Model,
		APIBaseURL:          d.BaseURL,
		APIVersion:          mappingFor(d.Provider).encode(settings),
	}
}

// convertSettings re-keys settings for a new provider, carrying the literal
// API version across. Provider-only values such as the Aliyun app id do not
// transfer.
func convertSettings(s ProviderSettings, provider string) ProviderSettings {
	m := mappingFor(provider)
	target := m.empty()
	if s == nil {
		return target
	}
	if sameVariant(s, target) {
		return s
	}
	return target.withAPIVersion(s.apiVersion())
}

func sameVariant(a, b ProviderSettings) bool {
	switch a.(type) {
	case AnthropicSettings:
		_, ok := b.(AnthropicSettings)
		return ok
	case OpenAISettings:
		_, ok := b.(OpenAISettings)
		return ok
	case AzureSettings:
		_, ok := b.(AzureSettings)
		return ok
	case AliyunSettings:
		_, ok := b.(AliyunSettings)
		return ok
	case CustomSettings:
		_, ok := b.(CustomSettings)
		return ok
	}
	return false
}
