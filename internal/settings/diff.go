package settings

import "fmt"

// FieldChange describes one field that differs between two drafts.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Diff lists the fields that differ between base and draft in display order.
// API keys are masked.
func Diff(base, draft Draft) []FieldChange {
	var out []FieldChange
	add := func(field string, a, b interface{}) {
		as, bs := fmt.Sprint(a), fmt.Sprint(b)
		if as != bs {
			out = append(out, FieldChange{Field: field, Old: as, New: bs})
		}
	}

	add("max_concurrent_agents", base.MaxConcurrentAgents, draft.MaxConcurrentAgents)
	add("auto_merge", base.AutoMerge, draft.AutoMerge)
	add("merge_strategy", base.MergeStrategy, draft.MergeStrategy)
	add("auto_spawn_interval", base.AutoSpawnInterval, draft.AutoSpawnInterval)
	add("enabled", base.Enabled, draft.Enabled)
	add("api_provider", base.Provider, draft.Provider)
	if base.APIKey != draft.APIKey {
		out = append(out, FieldChange{Field: "api_key", Old: MaskCredential(base.APIKey), New: MaskCredential(draft.APIKey)})
	}
	add("api_model", base.Model, draft.Model)
	add("api_base_url", base.BaseURL, draft.BaseURL)
	add("app_id", base.AppID(), draft.AppID())
	add("api_version", base.APIVersion(), draft.APIVersion())
	return out
}
