package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
)

func validConfig() OrchestratorConfig {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-ant-abcdefghijklmno1234"
	return cfg
}

func TestValidateConfig_Valid(t *testing.T) {
	assert.Empty(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OrchestratorConfig)
		field  string
	}{
		{"agents low", func(c *OrchestratorConfig) { c.MaxConcurrentAgents = 0 }, "max_concurrent_agents"},
		{"agents high", func(c *OrchestratorConfig) { c.MaxConcurrentAgents = 21 }, "max_concurrent_agents"},
		{"interval low", func(c *OrchestratorConfig) { c.AutoSpawnInterval = 9 }, "auto_spawn_interval"},
		{"interval high", func(c *OrchestratorConfig) { c.AutoSpawnInterval = 601 }, "auto_spawn_interval"},
		{"strategy", func(c *OrchestratorConfig) { c.MergeStrategy = "octopus" }, "merge_strategy"},
		{"provider", func(c *OrchestratorConfig) { c.APIProvider = " " }, "api_provider"},
		{"base url relative", func(c *OrchestratorConfig) { c.APIBaseURL = "/v1" }, "api_base_url"},
		{"base url scheme", func(c *OrchestratorConfig) { c.APIBaseURL = "ftp://host" }, "api_base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			errs := ValidateConfig(cfg)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateConfig_EdgesAccepted(t *testing.T) {
	cfg := validConfig()
	cfg.MaxConcurrentAgents = 20
	cfg.AutoSpawnInterval = 10
	cfg.APIBaseURL = "http://localhost:8080/v1"
	assert.Empty(t, ValidateConfig(cfg))
}

func TestValidationErrors_AsDomainError(t *testing.T) {
	cfg := validConfig()
	cfg.MaxConcurrentAgents = 0
	cfg.MergeStrategy = ""
	err := ValidateConfig(cfg).AsDomainError()

	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	assert.Contains(t, err.Details, "max_concurrent_agents")
	assert.Contains(t, err.Details, "merge_strategy")

	var de *core.DomainError
	require.True(t, errors.As(error(err), &de))
	assert.Equal(t, core.CodeInvalidConfig, de.Code)
}

func TestInspect_Advisories(t *testing.T) {
	cat := catalog.Default()

	issues := Inspect(validConfig(), cat)
	assert.Empty(t, issues)

	cfg := validConfig()
	cfg.APIKey = "sk-ant-short"
	cfg.APIModel = "gpt-4"
	issues = Inspect(cfg, cat)
	require.Len(t, issues, 2)
	assert.Equal(t, "api_key", issues[0].Field)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, "api_model", issues[1].Field)
	assert.False(t, HasErrors(issues))
}

func TestInspect_Azure(t *testing.T) {
	cfg := validConfig()
	cfg.APIProvider = "azure"
	cfg.APIModel = "gpt-4"
	cfg.APIKey = "azure-key-0123456789"
	issues := Inspect(cfg, catalog.Default())

	fields := map[string]bool{}
	for _, is := range issues {
		fields[is.Field] = true
	}
	assert.True(t, fields["api_base_url"])
	assert.True(t, fields["api_version"])
}

func TestInspect_UnknownProviderSkipsModelCheck(t *testing.T) {
	cfg := validConfig()
	cfg.APIProvider = "mycorp"
	cfg.APIModel = "my-model"
	cfg.APIKey = "abcdef"
	assert.Empty(t, Inspect(cfg, catalog.Default()))
}

func TestInspect_HardErrors(t *testing.T) {
	cfg := validConfig()
	cfg.AutoSpawnInterval = 1
	issues := Inspect(cfg, catalog.Default())
	assert.True(t, HasErrors(issues))
}
