package logging

import (
	"regexp"
	"strings"
)

// Sanitizer redacts provider credentials from log output.
type Sanitizer struct {
	patterns      []*regexp.Regexp
	sensitiveKeys map[string]bool
	redacted      string
}

// NewSanitizer creates a sanitizer with the default credential patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns:      defaultPatterns(),
		sensitiveKeys: defaultSensitiveKeys(),
		redacted:      "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Anthropic, before the generic sk- form so the whole key goes
		`sk-ant-[A-Za-z0-9_-]{8,}`,
		// OpenAI and DashScope
		`sk-[A-Za-z0-9_-]{16,}`,
		// Bearer and Azure api-key headers
		`(?i)bearer\s+[A-Za-z0-9._~+/=-]{12,}`,
		`(?i)api-key:\s*[A-Za-z0-9]{16,}`,
		// key=value and "key": "value" forms of api_key / token / secret
		`(?i)(api[_-]?key|token|secret)(["'\s]*[:=]\s*["']?)[^\s"'&,}]{6,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// defaultSensitiveKeys lists attribute keys whose values are always redacted.
func defaultSensitiveKeys() map[string]bool {
	return map[string]bool{
		"api_key":       true,
		"apikey":        true,
		"x-api-key":     true,
		"api-key":       true,
		"authorization": true,
		"token":         true,
		"auth_token":    true,
		"secret":        true,
	}
}

// Sanitize redacts credentials from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		if pattern.NumSubexp() >= 2 {
			result = pattern.ReplaceAllString(result, "${1}${2}"+s.redacted)
			continue
		}
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// IsSensitiveKey reports whether values under key are always redacted.
func (s *Sanitizer) IsSensitiveKey(key string) bool {
	return s.sensitiveKeys[strings.ToLower(key)]
}

// SanitizeValue redacts value, fully when key is sensitive.
func (s *Sanitizer) SanitizeValue(key, value string) string {
	if value != "" && s.IsSensitiveKey(key) {
		return s.redacted
	}
	return s.Sanitize(value)
}

// SanitizeMap redacts values in a map.
func (s *Sanitizer) SanitizeMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			result[k] = s.SanitizeValue(k, val)
		case map[string]interface{}:
			result[k] = s.SanitizeMap(val)
		default:
			result[k] = v
		}
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

// AddSensitiveKey marks an attribute key as always redacted.
func (s *Sanitizer) AddSensitiveKey(key string) {
	s.sensitiveKeys[strings.ToLower(key)] = true
}

// SetRedactedPlaceholder sets the placeholder text for redacted content.
func (s *Sanitizer) SetRedactedPlaceholder(placeholder string) {
	s.redacted = placeholder
}
