package common

import (
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
)

// MaskedValue replaces any sensitive value in logs and reports.
const MaskedValue = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "password", "token")
	Regex       *regexp.Regexp // Matches sensitive data inside free text
	Replacement string         // Replacement for Regex matches
	Keys        []string       // Attribute keys whose whole value is masked (case-insensitive)
}

// keyValuePattern matches `<key><sep><value>` where value is a whole quoted
// literal (escapes included) or an unquoted token. The replacement keeps the
// quotes of a quoted value.
func keyValuePattern(name, keys string, exact ...string) SensitivePattern {
	return SensitivePattern{
		Name:        name,
		Regex:       regexp.MustCompile(`(?i)(` + keys + `)(["']?\s*[:=]\s*)(?:(")(?:[^"\\]|\\.)*"|(')(?:[^'\\]|\\.)*'|[^"',}\]\s]+)`),
		Replacement: "${1}${2}${3}${4}" + MaskedValue + "${3}${4}",
		Keys:        exact,
	}
}

// DefaultSensitivePatterns covers the credentials the smoke scenario handles:
// login passwords, access tokens and the bearer Authorization header.
// bearer_token must run before authorization, which would otherwise consume
// only the scheme word and leave the token behind.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + MaskedValue,
	},
	keyValuePattern("password", `password|passwd|pwd`, "password", "passwd", "pwd"),
	keyValuePattern("token", `token|access[_-]?token|auth[_-]?token`, "token", "access_token", "auth_token", "access-token", "auth-token"),
	keyValuePattern("authorization", `authorization`, "authorization"),
	keyValuePattern("secret", `secret|client[_-]?secret`, "secret", "client_secret", "client-secret"),
}

// Masker handles masking of sensitive information in logs and reports.
type Masker struct {
	patterns []SensitivePattern
	enabled  atomic.Bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates a new masker with custom patterns
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	m := &Masker{patterns: patterns}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled.Load()
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.IsEnabled() || input == "" {
		return input
	}
	result := input
	for _, pattern := range m.patterns {
		if pattern.Regex == nil {
			continue
		}
		result = pattern.Regex.ReplaceAllString(result, pattern.Replacement)
	}
	return result
}

// isSensitiveKey reports whether key names a value that must never be shown.
func (m *Masker) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, pattern := range m.patterns {
		for _, k := range pattern.Keys {
			if lowerKey == k {
				return true
			}
		}
	}
	return false
}

// MaskValue masks sensitive information based on key-value context
func (m *Masker) MaskValue(key string, value any) any {
	if !m.IsEnabled() {
		return value
	}
	if m.isSensitiveKey(key) {
		return MaskedValue
	}
	switch v := value.(type) {
	case string:
		return m.MaskString(v)
	case []byte:
		return m.MaskString(string(v))
	case error:
		return m.MaskString(v.Error())
	default:
		return value
	}
}

// MaskAttr returns a copy of a with its value masked when sensitive.
func (m *Masker) MaskAttr(a slog.Attr) slog.Attr {
	if !m.IsEnabled() {
		return a
	}
	if m.isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskedValue)
	}
	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		if masked := m.MaskString(s); masked != s {
			return slog.String(a.Key, masked)
		}
	}
	return a
}

// Global masker instance
var globalMasker = NewMasker()

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}
