// Package provider turns a persisted orchestrator configuration into the
// concrete endpoint a plan generator calls, and builds SDK clients for it.
// Nothing in this package sends a request.
package provider

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// Protocol names the request dialect an endpoint speaks.
type Protocol string

const (
	ProtocolAnthropic Protocol = "anthropic"
	ProtocolOpenAI    Protocol = "openai"
	ProtocolAzure     Protocol = "azure"
	ProtocolDashScope Protocol = "dashscope"
)

const (
	// AnthropicVersion is the anthropic-version header sent with every request.
	AnthropicVersion = "2023-06-01"
	// FallbackBaseURL is used for every provider other than Azure that has no
	// configured URL and no catalog default, custom included.
	FallbackBaseURL = "https://api.anthropic.com/v1"
)

// Generation paths, relative to the base URL.
const (
	pathMessages        = "messages"
	pathChatCompletions = "chat/completions"
	pathDashScopeModel  = "services/aigc/text-generation/generation"
)

// Endpoint is a fully resolved generation target.
type Endpoint struct {
	Provider   string
	Protocol   Protocol
	BaseURL    string
	Path       string
	Model      string
	APIKey     string `json:"-"`
	APIVersion string
	AppID      string
	Header     http.Header `json:"-"`
}

// URL returns the absolute generation URL. Azure endpoints carry the API
// version as a query parameter.
func (e Endpoint) URL() string {
	u := e.BaseURL + "/" + strings.TrimLeft(e.Path, "/")
	if e.Protocol == ProtocolAzure && e.APIVersion != "" {
		u += "?api-version=" + url.QueryEscape(e.APIVersion)
	}
	return u
}

// ResolveEndpoint derives the endpoint for cfg. A nil catalog means the
// built-in one. The API key may be empty; auth headers are then omitted.
func ResolveEndpoint(cfg settings.OrchestratorConfig, cat *catalog.Catalog) (Endpoint, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	draft := settings.Decode(cfg)

	ep := Endpoint{
		Provider:   draft.Provider,
		Protocol:   protocolFor(draft.Provider),
		BaseURL:    resolveBaseURL(draft.Provider, draft.BaseURL, cat),
		Model:      draft.Model,
		APIKey:     draft.APIKey,
		APIVersion: draft.APIVersion(),
		AppID:      draft.AppID(),
	}
	if ep.BaseURL == "" {
		return Endpoint{}, core.ErrValidation(core.CodeInvalidConfig,
			"provider "+draft.Provider+" needs an explicit api_base_url").
			WithDetail("field", "api_base_url")
	}

	if ep.Protocol == ProtocolDashScope {
		// legacy configs embed the app in the base URL; the path adds it back
		if i := strings.Index(ep.BaseURL, "/apps/"); i >= 0 {
			ep.BaseURL = ep.BaseURL[:i]
		}
	}
	ep.Path = generationPath(ep.Protocol, ep.AppID)
	ep.Header = headersFor(ep)
	return ep, nil
}

func protocolFor(provider string) Protocol {
	switch provider {
	case catalog.ProviderOpenAI:
		return ProtocolOpenAI
	case catalog.ProviderAzure:
		return ProtocolAzure
	case catalog.ProviderAliyun:
		return ProtocolDashScope
	default:
		// anthropic, custom and anything unknown speak the Messages API
		return ProtocolAnthropic
	}
}

func resolveBaseURL(provider, configured string, cat *catalog.Catalog) string {
	if u := strings.TrimRight(strings.TrimSpace(configured), "/"); u != "" {
		return u
	}
	if u := strings.TrimRight(cat.DefaultBaseURL(provider), "/"); u != "" {
		return u
	}
	if provider == catalog.ProviderAzure {
		// an Azure endpoint is per resource; there is nothing to fall back to
		return ""
	}
	return FallbackBaseURL
}

func generationPath(p Protocol, appID string) string {
	switch p {
	case ProtocolOpenAI, ProtocolAzure:
		return pathChatCompletions
	case ProtocolDashScope:
		if appID != "" {
			return "apps/" + url.PathEscape(appID) + "/completion"
		}
		return pathDashScopeModel
	default:
		return pathMessages
	}
}

func headersFor(ep Endpoint) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	switch ep.Protocol {
	case ProtocolAnthropic:
		h.Set("anthropic-version", AnthropicVersion)
		if ep.APIKey != "" {
			h.Set("x-api-key", ep.APIKey)
		}
	case ProtocolOpenAI:
		if ep.APIKey != "" {
			h.Set("Authorization", "Bearer "+ep.APIKey)
		}
	case ProtocolAzure:
		if ep.APIKey != "" {
			h.Set("api-key", ep.APIKey)
		}
	case ProtocolDashScope:
		h.Set("X-DashScope-DataInspection", "enable")
		if ep.APIKey != "" {
			h.Set("Authorization", "Bearer "+ep.APIKey)
		}
	}
	return h
}
