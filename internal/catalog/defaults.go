package catalog

import "sync"

// Model set names used by the built-in data.
const (
	SetAnthropic = "anthropic"
	SetOpenAI    = "openai"
	SetAliyun    = "aliyun"
)

// DefaultData returns the built-in catalog data. Callers get a fresh copy.
func DefaultData() Data {
	return Data{
		Providers: []Provider{
			{ID: ProviderAnthropic, Name: "Anthropic", DefaultBaseURL: "https://api.anthropic.com/v1", ModelSet: SetAnthropic},
			{ID: ProviderOpenAI, Name: "OpenAI", DefaultBaseURL: "https://api.openai.com/v1", ModelSet: SetOpenAI},
			{ID: ProviderAzure, Name: "Azure OpenAI", DefaultBaseURL: "", ModelSet: SetOpenAI},
			{ID: ProviderAliyun, Name: "Aliyun Bailian (DashScope)", DefaultBaseURL: "https://dashscope.aliyuncs.com/api/v1", ModelSet: SetAliyun},
			// custom has no model set so it shares the fallback suggestions
			{ID: ProviderCustom, Name: "Custom Provider", DefaultBaseURL: ""},
		},
		ModelSets: map[string][]Model{
			SetAnthropic: {
				{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4 (Latest)", InputPerMTok: 3, OutputPerMTok: 15},
				{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", InputPerMTok: 15, OutputPerMTok: 75},
				{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", InputPerMTok: 3, OutputPerMTok: 15},
				{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", InputPerMTok: 0.80, OutputPerMTok: 4},
				{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", InputPerMTok: 15, OutputPerMTok: 75},
				{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", InputPerMTok: 0.25, OutputPerMTok: 1.25},
			},
			SetOpenAI: {
				{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", InputPerMTok: 10, OutputPerMTok: 30},
				{ID: "gpt-4", Name: "GPT-4", InputPerMTok: 30, OutputPerMTok: 60},
				{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", InputPerMTok: 0.50, OutputPerMTok: 1.50},
			},
			SetAliyun: {
				{ID: "qwen-plus", Name: "Qwen Plus", UsageBilled: true},
				{ID: "qwen-turbo", Name: "Qwen Turbo", UsageBilled: true},
				{ID: "qwen-max", Name: "Qwen Max", UsageBilled: true},
				{ID: "qwen-long", Name: "Qwen Long", UsageBilled: true},
				{ID: "custom", Name: "Custom Model", UsageBilled: true},
			},
		},
		FallbackSets: []string{SetAnthropic, SetOpenAI},
	}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the shared built-in catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(DefaultData())
		if err != nil {
			panic("catalog: invalid built-in data: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
