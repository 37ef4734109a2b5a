package testutil

import (
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// ValidAnthropicKey passes the Anthropic credential shape check.
const ValidAnthropicKey = "sk-ant-abcdefghijklmno1234"

// NewTestConfig creates an OrchestratorConfig with sensible defaults for tests.
// Use functional options to override specific fields.
func NewTestConfig(opts ...func(*settings.OrchestratorConfig)) settings.OrchestratorConfig {
	cfg := settings.DefaultConfig()
	cfg.APIKey = ValidAnthropicKey
	cfg.APIBaseURL = "https://api.anthropic.com/v1"
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// AliyunConfig returns a config for the Aliyun provider carrying appID.
func AliyunConfig(appID string) settings.OrchestratorConfig {
	return NewTestConfig(func(c *settings.OrchestratorConfig) {
		c.APIProvider = "aliyun"
		c.APIModel = "qwen-plus"
		c.APIKey = "sk-dashscope-123456"
		c.APIBaseURL = "https://dashscope.aliyuncs.com/api/v1"
		c.APIVersion = appID
	})
}
