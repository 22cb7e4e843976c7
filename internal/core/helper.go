package core

import "strings"

// DefaultRawIdentifier marks an expression that must be emitted as-is.
const DefaultRawIdentifier = `"`

// Helper quotes identifiers and resolves table names.
// The zero value quotes with double quotes and uses DefaultRawIdentifier.
type Helper struct {
	open, close   string
	rawIdentifier string
	tablePrefix   string
}

// NewHelper creates a Helper. quotes holds one character used on both sides
// ("\"", "`") or an open/close pair ("[]"); empty means double quotes.
func NewHelper(quotes, rawIdentifier, tablePrefix string) Helper {
	h := Helper{rawIdentifier: rawIdentifier, tablePrefix: tablePrefix}
	h.setQuotes(quotes)
	return h
}

func (h *Helper) setQuotes(quotes string) {
	switch r := []rune(quotes); len(r) {
	case 0:
		h.open, h.close = `"`, `"`
	case 1:
		h.open, h.close = quotes, quotes
	default:
		h.open, h.close = string(r[0]), string(r[1])
	}
}

func (h Helper) raw() string {
	if h.rawIdentifier == "" {
		return DefaultRawIdentifier
	}
	return h.rawIdentifier
}

// Quote wraps every non-empty dot separated segment of expr in the quote pair.
func (h Helper) Quote(expr string) string {
	open, closing := h.open, h.close
	if open == "" {
		open, closing = `"`, `"`
	}

	segments := strings.Split(expr, ".")
	for i, segment := range segments {
		if segment != "" {
			segments[i] = open + segment + closing
		}
	}
	return strings.Join(segments, ".")
}

// IsRaw reports whether expr carries the raw marker and returns it without the marker.
func (h Helper) IsRaw(expr string) (bool, string) {
	if rest, ok := strings.CutPrefix(expr, h.raw()); ok {
		return true, rest
	}
	return false, expr
}

// Raw prepends the raw marker to expr.
func (h Helper) Raw(expr string) string {
	return h.raw() + expr
}

// Table applies the table prefix. Raw names are returned without the marker
// and without the prefix.
func (h Helper) Table(name string) string {
	if raw, rest := h.IsRaw(name); raw {
		return rest
	}
	return h.tablePrefix + name
}

// Column quotes a column expression, qualifying it with prefix when the
// expression has no dot. Raw expressions are returned without the marker.
func (h Helper) Column(expr, prefix string) string {
	if raw, rest := h.IsRaw(expr); raw {
		return rest
	}
	if prefix != "" && !strings.Contains(expr, ".") {
		expr = prefix + "." + expr
	}
	return h.Quote(expr)
}

// TablePrefix returns the configured table prefix.
func (h Helper) TablePrefix() string {
	return h.tablePrefix
}
