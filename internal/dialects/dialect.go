// Package dialects provides database-specific SQL dialect implementations for
// PostgreSQL, MySQL, SQLite and SQL Server, handling default identifier quotes,
// placeholders and pagination clauses.
package dialects

import (
	"errors"
	"strconv"
	"strings"
)

// ErrOrderRequired is returned when a dialect can only paginate ordered results.
var ErrOrderRequired = errors.New("offsetting require column order")

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string
	// Quotes returns the default identifier quote pair ("\"", "`" or "[]").
	Quotes() string
	// Placeholder returns the bind parameter marker for the 1-based index.
	Placeholder(int) string
	// Paginate returns the pagination clause for limit/offset. When top is true
	// the clause must be placed before the select column list.
	Paginate(limit, offset int, ordered bool) (clause string, top bool, err error)
	// VersionQuery returns a statement selecting the server version.
	VersionQuery() string
}

var dialects = make(map[string]Dialect)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	dialects[strings.ToLower(name)] = d
}

// GetDialect retrieves a registered dialect by driver name.
// Unknown or empty names resolve to the standard dialect.
func GetDialect(name string) Dialect {
	if d, ok := dialects[strings.ToLower(name)]; ok {
		return d
	}
	return Standard
}

// Standard is the dialect used for drivers without special needs.
var Standard Dialect = &StandardDialect{}

// StandardDialect emits ANSI-style quoting and LIMIT/OFFSET pagination.
type StandardDialect struct{}

// Name returns "standard".
func (d *StandardDialect) Name() string { return "standard" }

// Quotes returns the double quote.
func (d *StandardDialect) Quotes() string { return `"` }

// Placeholder returns "?".
func (d *StandardDialect) Placeholder(_ int) string { return "?" }

// VersionQuery returns "SELECT VERSION()".
func (d *StandardDialect) VersionQuery() string { return "SELECT VERSION()" }

// Paginate emits LIMIT and OFFSET independently of each other.
func (d *StandardDialect) Paginate(limit, offset int, _ bool) (string, bool, error) {
	return limitOffset(limit, offset), false, nil
}

func limitOffset(limit, offset int) string {
	parts := make([]string, 0, 2)
	if limit > 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(limit))
	}
	if offset > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(offset))
	}
	return strings.Join(parts, " ")
}
