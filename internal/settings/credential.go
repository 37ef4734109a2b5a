package settings

import (
	"strings"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
)

// IsValidCredential reports whether value looks like a credential for the
// given provider. The check is structural only; no provider is contacted.
// Unknown providers get a minimal length check.
func IsValidCredential(value, providerID string) bool {
	if value == "" {
		return false
	}
	switch providerID {
	case catalog.ProviderAnthropic:
		return strings.HasPrefix(value, "sk-ant-") && len(value) > 20
	case catalog.ProviderOpenAI:
		return strings.HasPrefix(value, "sk-") && len(value) > 20
	case catalog.ProviderAzure:
		return len(value) > 10
	default:
		return len(value) > 5
	}
}

// MaskCredential hides all but the last four characters of a credential.
func MaskCredential(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", 8) + value[len(value)-4:]
}
