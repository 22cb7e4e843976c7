package core

import (
	"regexp"
	"sort"
	"strings"

	"github.com/coregx/sqlrow/internal/dialects"
)

// Row is a column to value mapping: a fetched row or the data to write.
type Row map[string]any

// Columns returns the row's column names in sorted order.
// Writes use this order so the generated SQL is deterministic.
func (r Row) Columns() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Column is one entry of a select column list.
type Column struct {
	Alias string
	Expr  string
}

// Columns is an ordered select column list.
type Columns []Column

// Cols creates an unaliased column list.
func Cols(exprs ...string) Columns {
	cols := make(Columns, 0, len(exprs))
	for _, expr := range exprs {
		cols = append(cols, Column{Expr: expr})
	}
	return cols
}

// As appends expr selected under alias.
func (c Columns) As(alias, expr string) Columns {
	return append(c, Column{Alias: alias, Expr: expr})
}

// Order is one ORDER BY entry. An empty Direction omits the keyword.
type Order struct {
	Column    string
	Direction string
}

// Orders is an ordered ORDER BY list.
type Orders []Order

// By creates an order list without directions.
func By(columns ...string) Orders {
	return Orders(nil).By(columns...)
}

// Asc creates an order list sorting column ascending.
func Asc(column string) Orders { return Orders(nil).Asc(column) }

// Desc creates an order list sorting column descending.
func Desc(column string) Orders { return Orders(nil).Desc(column) }

// By appends columns without directions.
func (o Orders) By(columns ...string) Orders {
	for _, column := range columns {
		o = append(o, Order{Column: column})
	}
	return o
}

// Asc appends column in ascending order.
func (o Orders) Asc(column string) Orders {
	return append(o, Order{Column: column, Direction: "asc"})
}

// Desc appends column in descending order.
func (o Orders) Desc(column string) Orders {
	return append(o, Order{Column: column, Direction: "desc"})
}

// SelectOptions controls everything past the table and WHERE criteria.
type SelectOptions struct {
	// Sub treats the table argument as sub query SQL. Alias is then required.
	Sub bool
	// Alias adds `AS alias` and qualifies columns with it.
	Alias   string
	Columns Columns
	// Joins are emitted in order. Fragments not starting with a JOIN keyword get "JOIN ".
	Joins  []string
	Groups []string
	Having Criteria
	Orders Orders
	Limit  int
	Offset int
}

// Clone returns a copy safe to modify. A nil receiver yields zero options.
func (o *SelectOptions) Clone() *SelectOptions {
	if o == nil {
		return &SelectOptions{}
	}
	c := *o
	c.Columns = append(Columns(nil), o.Columns...)
	c.Joins = append([]string(nil), o.Joins...)
	c.Groups = append([]string(nil), o.Groups...)
	c.Orders = append(Orders(nil), o.Orders...)
	c.Having.Values = append([]any(nil), o.Having.Values...)
	return &c
}

// Statement is the SQL text and bound values produced by the builder.
type Statement struct {
	SQL    string
	Values []any
}

// SQLBuilder is implemented by Builder and ModifiableBuilder.
type SQLBuilder interface {
	Select(table string, criteria Criteria, opts *SelectOptions) (Statement, error)
	Insert(table string, data Row) (Statement, error)
	Update(table string, data Row, criteria Criteria) (Statement, error)
	Delete(table string, criteria Criteria) (Statement, error)
	InsertBatch(table string, rows []Row) (Statement, error)

	Quote(expr string) string
	Raw(expr string) string
	IsRaw(expr string) (bool, string)
	Table(name string) string
	Column(expr, prefix string) string
	CriteriaIn(column string, values ...any) (Criteria, error)
	Driver() string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDriver selects the pagination dialect and default quotes.
func WithDriver(driver string) BuilderOption {
	return func(b *Builder) {
		b.driver = strings.ToLower(driver)
	}
}

// WithTablePrefix prefixes every non-raw table name.
func WithTablePrefix(prefix string) BuilderOption {
	return func(b *Builder) {
		b.tablePrefix = prefix
	}
}

// WithQuotes overrides the dialect identifier quotes ("\"", "`", "[]").
func WithQuotes(quotes string) BuilderOption {
	return func(b *Builder) {
		b.quotes = quotes
	}
}

// WithRawIdentifier sets the marker for expressions emitted unquoted.
func WithRawIdentifier(marker string) BuilderOption {
	return func(b *Builder) {
		b.rawIdentifier = marker
	}
}

// WithFormat separates clauses with newlines instead of spaces.
func WithFormat(format bool) BuilderOption {
	return func(b *Builder) {
		b.format = format
	}
}

// Builder generates parameterized SQL. It never interpolates values.
type Builder struct {
	Helper

	driver        string
	dialect       dialects.Dialect
	quotes        string
	rawIdentifier string
	tablePrefix   string
	format        bool
}

// NewBuilder creates a statement builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}

	b.dialect = dialects.GetDialect(b.driver)
	quotes := b.quotes
	if quotes == "" {
		quotes = b.dialect.Quotes()
	}
	b.Helper = NewHelper(quotes, b.rawIdentifier, b.tablePrefix)
	return b
}

// Driver returns the lower-cased driver name.
func (b *Builder) Driver() string {
	return b.driver
}

// Dialect returns the pagination dialect.
func (b *Builder) Dialect() dialects.Dialect {
	return b.dialect
}

// Delimiter returns the clause separator.
func (b *Builder) Delimiter() string {
	if b.format {
		return "\n"
	}
	return " "
}

var joinKeyword = regexp.MustCompile(`(?i)^((natural|left|right|full|inner|outer|cross|straight)\s+)*join\b`)

// Select builds a SELECT statement. Bound values are the WHERE values
// followed by the HAVING values.
func (b *Builder) Select(table string, criteria Criteria, opts *SelectOptions) (Statement, error) {
	if opts == nil {
		opts = &SelectOptions{}
	}
	if opts.Sub && opts.Alias == "" {
		return Statement{}, ErrSubQueryAlias
	}

	sep := b.Delimiter()
	tab := table
	if !opts.Sub {
		tab = b.Table(table)
	}
	pre := opts.Alias
	if pre == "" && !opts.Sub {
		pre = tab
	}

	var values []any
	sql := b.columns(opts.Columns, pre, sep)

	if opts.Sub {
		sql += sep + "FROM (" + tab + ")"
	} else {
		sql += sep + "FROM " + b.Quote(tab)
	}
	if opts.Alias != "" {
		sql += sep + "AS " + b.Quote(opts.Alias)
	}

	if line := b.joins(opts.Joins, sep); line != "" {
		sql += sep + line
	}

	values = append(values, criteria.Values...)
	if !criteria.IsEmpty() {
		sql += sep + "WHERE " + criteria.Fragment
	}

	if line := b.groups(opts.Groups, pre, sep); line != "" {
		sql += sep + "GROUP BY " + line
	}

	values = append(values, opts.Having.Values...)
	if !opts.Having.IsEmpty() {
		sql += sep + "HAVING " + opts.Having.Fragment
	}

	orderLine := b.orders(opts.Orders, pre, sep)
	if orderLine != "" {
		sql += sep + "ORDER BY " + orderLine
	}

	if opts.Limit > 0 || opts.Offset > 0 {
		line, top, err := b.dialect.Paginate(opts.Limit, opts.Offset, orderLine != "")
		if err != nil {
			return Statement{}, err
		}
		if top {
			sql = line + sep + sql
		} else if line != "" {
			sql += sep + line
		}
	}

	return Statement{SQL: "SELECT" + sep + sql, Values: values}, nil
}

// Insert builds a single row INSERT. Columns follow the sorted key order.
func (b *Builder) Insert(table string, data Row) (Statement, error) {
	if len(data) == 0 {
		return Statement{}, ErrNoData
	}

	sep := b.Delimiter()
	keys := data.Columns()
	cols := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, key := range keys {
		cols[i] = b.Column(key, "")
		values[i] = data[key]
	}

	sql := "INSERT INTO " + b.Quote(b.Table(table)) + sep +
		"(" + strings.Join(cols, ","+sep) + ")" + sep +
		"VALUES" + sep +
		"(" + placeholders(len(keys)) + ")"

	return Statement{SQL: sql, Values: values}, nil
}

// Update builds an UPDATE. Bound values are the data values followed by the
// criteria values.
func (b *Builder) Update(table string, data Row, criteria Criteria) (Statement, error) {
	if len(data) == 0 {
		return Statement{}, ErrNoData
	}

	sep := b.Delimiter()
	keys := data.Columns()
	sets := make([]string, len(keys))
	values := make([]any, 0, len(keys)+len(criteria.Values))
	for i, key := range keys {
		sets[i] = b.Quote(key) + " = ?"
		values = append(values, data[key])
	}
	values = append(values, criteria.Values...)

	sql := "UPDATE " + b.Quote(b.Table(table)) + sep + "SET " + strings.Join(sets, ","+sep)
	if !criteria.IsEmpty() {
		sql += sep + "WHERE " + criteria.Fragment
	}

	return Statement{SQL: sql, Values: values}, nil
}

// Delete builds a DELETE.
func (b *Builder) Delete(table string, criteria Criteria) (Statement, error) {
	sql := "DELETE FROM " + b.Quote(b.Table(table))
	if !criteria.IsEmpty() {
		sql += b.Delimiter() + "WHERE " + criteria.Fragment
	}

	return Statement{SQL: sql, Values: append([]any(nil), criteria.Values...)}, nil
}

// InsertBatch builds a multi row INSERT. Every row must have exactly the
// columns of the first row.
func (b *Builder) InsertBatch(table string, rows []Row) (Statement, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Statement{}, ErrNoInsertData
	}

	sep := b.Delimiter()
	columns := rows[0].Columns()
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = b.Column(column, "")
	}
	line := "(" + placeholders(len(columns)) + ")"

	var sql strings.Builder
	sql.WriteString("INSERT INTO " + b.Quote(b.Table(table)) + sep)
	sql.WriteString("(" + strings.Join(quoted, ", ") + ")" + sep + "VALUES " + line)

	values := make([]any, 0, len(rows)*len(columns))
	for pos, row := range rows {
		if !sameColumns(rows[0], row) {
			return Statement{}, &RowMismatchError{Position: pos}
		}
		if pos > 0 {
			sql.WriteString("," + sep + line)
		}
		for _, column := range columns {
			values = append(values, row[column])
		}
	}

	return Statement{SQL: sql.String(), Values: values}, nil
}

func sameColumns(first, row Row) bool {
	if len(first) != len(row) {
		return false
	}
	for column := range first {
		if _, ok := row[column]; !ok {
			return false
		}
	}
	return true
}

func (b *Builder) columns(cols Columns, prefix, sep string) string {
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		switch {
		case col.Expr == "*":
			parts = append(parts, "*")
		case col.Expr == "":
			continue
		case col.Alias == "":
			parts = append(parts, b.Column(col.Expr, prefix))
		default:
			parts = append(parts, b.Column(col.Expr, prefix)+" AS "+b.Quote(col.Alias))
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ","+sep)
}

func (b *Builder) joins(joins []string, sep string) string {
	parts := make([]string, 0, len(joins))
	for _, join := range joins {
		join = strings.TrimSpace(join)
		switch {
		case join == "":
			continue
		case joinKeyword.MatchString(join):
			parts = append(parts, join)
		default:
			parts = append(parts, "JOIN "+join)
		}
	}
	return strings.Join(parts, sep)
}

func (b *Builder) groups(groups []string, prefix, sep string) string {
	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		if group != "" {
			parts = append(parts, b.Column(group, prefix))
		}
	}
	return strings.Join(parts, ","+sep)
}

func (b *Builder) orders(orders Orders, prefix, sep string) string {
	parts := make([]string, 0, len(orders))
	for _, order := range orders {
		switch {
		case order.Column == "":
			continue
		case order.Direction == "":
			parts = append(parts, b.Column(order.Column, prefix))
		default:
			parts = append(parts, b.Column(order.Column, prefix)+" "+strings.ToUpper(order.Direction))
		}
	}
	return strings.Join(parts, ","+sep)
}
