package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSensitiveFields lists column names whose bound values never reach the logs.
var DefaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "private_key",
}

const (
	maskValue    = "***REDACTED***"
	maxValueSize = 100
)

// Sanitizer masks bound values of statements that touch sensitive columns.
type Sanitizer struct {
	pattern *regexp.Regexp
}

// NewSanitizer creates a sanitizer for the given column names.
// Without names DefaultSensitiveFields is used.
func NewSanitizer(fields ...string) *Sanitizer {
	if len(fields) == 0 {
		fields = DefaultSensitiveFields
	}

	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(field))
	}

	return &Sanitizer{
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Sensitive reports whether the statement references a sensitive column.
func (s *Sanitizer) Sensitive(sql string) bool {
	return s.pattern.MatchString(sql)
}

// Mask returns values unchanged for harmless statements and a fully masked
// copy otherwise. The input slice is never modified.
func (s *Sanitizer) Mask(sql string, values []any) []any {
	if len(values) == 0 || !s.Sensitive(sql) {
		return values
	}

	masked := make([]any, len(values))
	for i := range values {
		masked[i] = maskValue
	}
	return masked
}

// Format renders values for a log line, truncating long ones.
func (s *Sanitizer) Format(values []any) string {
	if len(values) == 0 {
		return "[]"
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MaskAndFormat is Format(Mask(sql, values)).
func (s *Sanitizer) MaskAndFormat(sql string, values []any) string {
	return s.Format(s.Mask(sql, values))
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	str := fmt.Sprintf("%v", v)
	if len(str) > maxValueSize {
		return str[:maxValueSize] + "..."
	}
	return str
}
