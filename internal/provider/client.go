package provider

import (
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	openaioption "github.com/openai/openai-go/option"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// Error codes returned by the client factories.
const (
	CodeMissingCredential = "MISSING_CREDENTIAL"
	CodeProtocolMismatch  = "PROTOCOL_MISMATCH"
)

// ClientOptions tune SDK client construction.
type ClientOptions struct {
	HTTPClient *http.Client
	MaxRetries int
}

// NewAnthropicClient builds an Anthropic SDK client for ep. Only endpoints that
// speak the Messages API are accepted.
func NewAnthropicClient(ep Endpoint, opts ClientOptions) (anthropic.Client, error) {
	if ep.Protocol != ProtocolAnthropic {
		return anthropic.Client{}, mismatch(ep, ProtocolAnthropic)
	}
	if ep.APIKey == "" {
		return anthropic.Client{}, missingKey(ep)
	}

	reqOpts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(ep.APIKey),
		anthropicoption.WithBaseURL(anthropicSDKBase(ep.BaseURL)),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, anthropicoption.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxRetries > 0 {
		reqOpts = append(reqOpts, anthropicoption.WithMaxRetries(opts.MaxRetries))
	}
	return anthropic.NewClient(reqOpts...), nil
}

// NewOpenAIClient builds an OpenAI SDK client for ep. Azure endpoints are
// configured through the SDK's azure options so the deployment URL and
// api-version are handled there.
func NewOpenAIClient(ep Endpoint, opts ClientOptions) (openai.Client, error) {
	if ep.Protocol != ProtocolOpenAI && ep.Protocol != ProtocolAzure {
		return openai.Client{}, mismatch(ep, ProtocolOpenAI)
	}
	if ep.APIKey == "" {
		return openai.Client{}, missingKey(ep)
	}

	var reqOpts []openaioption.RequestOption
	if ep.Protocol == ProtocolAzure {
		version := ep.APIVersion
		if version == "" {
			version = settings.DefaultAzureAPIVersion
		}
		reqOpts = append(reqOpts,
			azure.WithEndpoint(ep.BaseURL, version),
			azure.WithAPIKey(ep.APIKey),
		)
	} else {
		reqOpts = append(reqOpts,
			openaioption.WithAPIKey(ep.APIKey),
			openaioption.WithBaseURL(ep.BaseURL+"/"),
		)
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, openaioption.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxRetries > 0 {
		reqOpts = append(reqOpts, openaioption.WithMaxRetries(opts.MaxRetries))
	}
	return openai.NewClient(reqOpts...), nil
}

// anthropicSDKBase strips the version segment: the SDK appends v1/messages itself.
func anthropicSDKBase(base string) string {
	return strings.TrimSuffix(base, "/v1") + "/"
}

func mismatch(ep Endpoint, want Protocol) error {
	return core.ErrValidation(CodeProtocolMismatch,
		"provider "+ep.Provider+" does not speak the "+string(want)+" protocol").
		WithDetail("protocol", string(ep.Protocol))
}

func missingKey(ep Endpoint) error {
	return core.ErrValidation(CodeMissingCredential, "no api_key configured for provider "+ep.Provider).
		WithDetail("field", "api_key")
}
