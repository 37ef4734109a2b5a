package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	base := Decode(validConfig())
	assert.Empty(t, Diff(base, base))

	edited := base
	edited.MaxConcurrentAgents = 8
	edited.APIKey = "sk-ant-REDACTED"
	edited.Settings = AnthropicSettings{APIVersion: "2023-06-01"}

	changes := Diff(base, edited)
	assert.Equal(t, []FieldChange{
		{Field: "max_concurrent_agents", Old: "5", New: "8"},
		{Field: "api_key", Old: "********1234", New: "********9999"},
		{Field: "api_version", Old: "", New: "2023-06-01"},
	}, changes)
}

func TestDiff_AppID(t *testing.T) {
	base := Decode(OrchestratorConfig{APIProvider: "aliyun", APIVersion: "app-123"})
	edited := base
	edited.Settings = AliyunSettings{AppID: "app-456"}
	assert.Equal(t, []FieldChange{{Field: "app_id", Old: "app-123", New: "app-456"}}, Diff(base, edited))
}
