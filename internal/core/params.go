package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Params holds named parameter values for QueryNamed and ExecNamed.
type Params map[string]any

// ErrMissingParam is returned when a {:name} placeholder has no value.
var ErrMissingParam = errors.New("missing parameter")

var (
	namedPlaceholder = regexp.MustCompile(`\{:(\w+)\}`)
	// {{table}} and [[column]]; dots separate schema or table qualifiers.
	quotedIdentifier = regexp.MustCompile(`\{\{[\w\-. ]+\}\}|\[\[[\w\-. ]+\]\]`)
)

// ExpandNamed rewrites query for positional binding: {:name} becomes ?
// bound to params[name], {{table}} becomes the quoted table name with the
// table prefix and [[column]] the quoted column. A name used twice is
// bound twice.
//
// Example:
//
//	st, err := core.ExpandNamed(b, "SELECT [[name]] FROM {{users}} WHERE [[id]] = {:id}", core.Params{"id": 7})
//	// st.SQL: SELECT "name" FROM "users" WHERE "id" = ?
//	// st.Values: [7]
func ExpandNamed(b SQLBuilder, query string, params Params) (Statement, error) {
	var (
		values  []any
		missing string
	)

	sql := namedPlaceholder.ReplaceAllStringFunc(query, func(match string) string {
		name := match[2 : len(match)-1]
		value, ok := params[name]
		if !ok && missing == "" {
			missing = name
		}
		values = append(values, value)
		return "?"
	})
	if missing != "" {
		return Statement{}, fmt.Errorf("%w: %s", ErrMissingParam, missing)
	}

	sql = quotedIdentifier.ReplaceAllStringFunc(sql, func(match string) string {
		name := trimParts(match[2 : len(match)-2])
		if strings.HasPrefix(match, "{{") {
			return b.Quote(b.Table(name))
		}
		return b.Column(name, "")
	})

	return Statement{SQL: sql, Values: values}, nil
}

func trimParts(identifier string) string {
	parts := strings.Split(identifier, ".")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return strings.Join(parts, ".")
}

// QueryNamed runs a query written with named placeholders.
func (c *Connection) QueryNamed(ctx context.Context, query string, params Params) ([]Row, error) {
	st, err := ExpandNamed(c.builder, query, params)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, st.SQL, st.Values...)
}

// ExecNamed executes a statement written with named placeholders.
func (c *Connection) ExecNamed(ctx context.Context, query string, params Params) (ExecResult, error) {
	st, err := ExpandNamed(c.builder, query, params)
	if err != nil {
		return ExecResult{}, err
	}
	return c.Exec(ctx, st.SQL, st.Values...)
}
