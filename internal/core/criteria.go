package core

import (
	"regexp"
	"strings"
)

// Criteria is a WHERE or HAVING fragment with the values bound to its
// placeholders, in order.
type Criteria struct {
	Fragment string
	Values   []any
}

// Where creates a Criteria from a fragment and its bound values.
//
// Example:
//
//	core.Where("status = ? AND age > ?", "active", 18)
func Where(fragment string, values ...any) Criteria {
	return Criteria{Fragment: fragment, Values: values}
}

// IsEmpty reports whether the criteria has no fragment.
func (c Criteria) IsEmpty() bool {
	return c.Fragment == ""
}

var booleanKeyword = regexp.MustCompile(`(?i)^\s*(and|or)\b`)

// JoinCriteria appends addition to base. An addition that does not start
// with AND/OR is parenthesized and joined with conj (AND when empty).
// With an empty base, a leading AND/OR is dropped from addition.
func JoinCriteria(base, addition, conj string) string {
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return base
	}

	base = strings.TrimSpace(base)
	if base == "" {
		return strings.TrimSpace(booleanKeyword.ReplaceAllString(addition, ""))
	}

	if booleanKeyword.MatchString(addition) {
		return base + " " + addition
	}

	if conj == "" {
		conj = "AND"
	}
	return base + " " + strings.ToUpper(conj) + " (" + addition + ")"
}

// MergeCriteria combines criteria with AND, appending their values in order.
// Items without a fragment are skipped, so their values are never bound.
func MergeCriteria(items ...Criteria) Criteria {
	var merged Criteria
	for _, item := range items {
		if item.IsEmpty() {
			continue
		}

		merged.Fragment = JoinCriteria(merged.Fragment, item.Fragment, "AND")
		merged.Values = append(merged.Values, item.Values...)

		if merged.Fragment == "" {
			merged = Criteria{}
		}
	}
	return merged
}

// CriteriaIn builds `column IN (?, ...)` for values. Raw columns are not quoted.
func (h Helper) CriteriaIn(column string, values ...any) (Criteria, error) {
	if len(values) == 0 {
		return Criteria{}, ErrEmptyData
	}

	col := column
	if raw, rest := h.IsRaw(column); raw {
		col = rest
	} else {
		col = h.Quote(column)
	}

	bound := make([]any, len(values))
	copy(bound, values)

	return Criteria{
		Fragment: col + " IN (" + placeholders(len(values)) + ")",
		Values:   bound,
	}, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
