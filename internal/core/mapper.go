package core

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"
)

// Key is a mapper key column. Auto marks a database generated value.
type Key struct {
	Column string
	Auto   bool
}

// Accessor is a computed property of a mapper. Get is required; Set and
// Unset are optional.
type Accessor struct {
	Get   func(m *Mapper) any
	Set   func(m *Mapper, value any)
	Unset func(m *Mapper)
}

// Mapper is an active record cursor over the rows of one table.
//
// Rows loaded by FindAll are kept as fetched; Set records pending changes
// for the current position and Save writes them. A Mapper is not safe for
// concurrent use.
type Mapper struct {
	session Session
	table   string
	keys    []Key
	casts   map[string]string

	readOnly      bool
	columnsLoad   []string
	loadSet       map[string]struct{}
	ignoreSet     map[string]struct{}
	accessors     map[string]Accessor
	accessorNames []string

	ptr     int
	rows    []Row
	changes map[int]Row
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithKeys sets plain key columns.
func WithKeys(columns ...string) MapperOption {
	return func(m *Mapper) {
		for _, col := range columns {
			m.keys = append(m.keys, Key{Column: col})
		}
	}
}

// WithAutoKey adds a database generated key column.
func WithAutoKey(column string) MapperOption {
	return func(m *Mapper) {
		m.keys = append(m.keys, Key{Column: column, Auto: true})
	}
}

// WithCasts sets the cast kind per column.
func WithCasts(casts map[string]string) MapperOption {
	return func(m *Mapper) {
		for col, kind := range casts {
			m.casts[col] = kind
		}
	}
}

// ReadOnly rejects every write with ErrReadOnly.
func ReadOnly(readOnly bool) MapperOption {
	return func(m *Mapper) {
		m.readOnly = readOnly
	}
}

// WithColumnsLoad restricts selects and column access to columns.
func WithColumnsLoad(columns ...string) MapperOption {
	return func(m *Mapper) {
		for _, col := range columns {
			if _, ok := m.loadSet[col]; !ok {
				m.loadSet[col] = struct{}{}
				m.columnsLoad = append(m.columnsLoad, col)
			}
		}
	}
}

// WithColumnsIgnore forbids access to columns.
func WithColumnsIgnore(columns ...string) MapperOption {
	return func(m *Mapper) {
		for _, col := range columns {
			m.ignoreSet[col] = struct{}{}
		}
	}
}

// WithAccessor registers a computed property under name.
func WithAccessor(name string, a Accessor) MapperOption {
	return func(m *Mapper) {
		if _, ok := m.accessors[name]; !ok {
			m.accessorNames = append(m.accessorNames, name)
		}
		m.accessors[name] = a
	}
}

// TableNamer is implemented by types that name their own table.
type TableNamer interface {
	TableName() string
}

// TableName returns the table of v: its own TableName when it implements
// TableNamer, otherwise its underscored type name (UserMap becomes
// user_map).
func TableName(v any) string {
	if tn, ok := v.(TableNamer); ok {
		return tn.TableName()
	}
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return inflect.Underscore(t.Name())
}

// NewMapper creates a mapper over table.
func NewMapper(s Session, table string, opts ...MapperOption) *Mapper {
	m := &Mapper{
		session:   s,
		table:     table,
		casts:     make(map[string]string),
		loadSet:   make(map[string]struct{}),
		ignoreSet: make(map[string]struct{}),
		accessors: make(map[string]Accessor),
		ptr:       -1,
		changes:   make(map[int]Row),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the session the mapper works through.
func (m *Mapper) Session() Session {
	return m.session
}

// Table returns the table name without the raw marker.
func (m *Mapper) Table() string {
	_, table := m.session.Builder().IsRaw(m.table)
	return table
}

// Keys returns the key columns.
func (m *Mapper) Keys() []Key {
	return append([]Key(nil), m.keys...)
}

// IsReadOnly reports whether writes are rejected.
func (m *Mapper) IsReadOnly() bool {
	return m.readOnly
}

func (m *Mapper) selectOptions(opts *SelectOptions) *SelectOptions {
	o := opts.Clone()
	if len(m.columnsLoad) > 0 {
		o.Columns = Cols(m.columnsLoad...)
	}
	return o
}

// CountRow counts the rows matched by criteria.
func (m *Mapper) CountRow(ctx context.Context, criteria Criteria, opts *SelectOptions) (int64, error) {
	return m.session.Count(ctx, m.table, criteria, opts)
}

// Paginate returns a page of cast rows.
func (m *Mapper) Paginate(ctx context.Context, page int, criteria Criteria, opts *SelectOptions) (*Page, error) {
	p, err := m.session.Paginate(ctx, m.table, page, criteria, m.selectOptions(opts))
	if err != nil {
		return nil, err
	}
	p.Subset = m.castOutAll(p.Subset)
	return p, nil
}

// SimplePaginate returns a page of cast rows without counting.
func (m *Mapper) SimplePaginate(ctx context.Context, page int, criteria Criteria, opts *SelectOptions) (*Page, error) {
	p, err := m.session.SimplePaginate(ctx, m.table, page, criteria, m.selectOptions(opts))
	if err != nil {
		return nil, err
	}
	p.Subset = m.castOutAll(p.Subset)
	return p, nil
}

// Select returns cast rows without touching the cursor.
func (m *Mapper) Select(ctx context.Context, criteria Criteria, opts *SelectOptions) ([]Row, error) {
	rows, err := m.session.Select(ctx, m.table, criteria, m.selectOptions(opts))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return m.castOutAll(rows), nil
}

// SelectOne returns the first cast row or nil.
func (m *Mapper) SelectOne(ctx context.Context, criteria Criteria, opts *SelectOptions) (Row, error) {
	o := opts.Clone()
	o.Limit = 1

	rows, err := m.Select(ctx, criteria, o)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Insert casts data in and inserts it.
func (m *Mapper) Insert(ctx context.Context, data Row) (ExecResult, error) {
	if m.readOnly {
		return ExecResult{}, ErrReadOnly
	}
	return m.session.Insert(ctx, m.table, m.toSave(data))
}

// Update casts data in and updates the rows matched by criteria.
func (m *Mapper) Update(ctx context.Context, data Row, criteria Criteria) (ExecResult, error) {
	if m.readOnly {
		return ExecResult{}, ErrReadOnly
	}
	return m.session.Update(ctx, m.table, m.toSave(data), criteria)
}

// Delete deletes the rows matched by criteria.
func (m *Mapper) Delete(ctx context.Context, criteria Criteria) (ExecResult, error) {
	if m.readOnly {
		return ExecResult{}, ErrReadOnly
	}
	return m.session.Delete(ctx, m.table, criteria)
}

// InsertBatch casts rows in and inserts them with one statement.
func (m *Mapper) InsertBatch(ctx context.Context, rows []Row) (ExecResult, error) {
	if m.readOnly {
		return ExecResult{}, ErrReadOnly
	}
	data := make([]Row, len(rows))
	for i, row := range rows {
		data[i] = m.toSave(row)
	}
	return m.session.InsertBatch(ctx, m.table, data)
}

// FindAll loads the rows matched by criteria into the cursor, drops every
// pending change and rewinds.
func (m *Mapper) FindAll(ctx context.Context, criteria Criteria, opts *SelectOptions) error {
	rows, err := m.session.Select(ctx, m.table, criteria, m.selectOptions(opts))
	m.rows = rows
	m.changes = make(map[int]Row)
	m.Rewind()
	return err
}

// FindOne loads at most one row.
func (m *Mapper) FindOne(ctx context.Context, criteria Criteria, opts *SelectOptions) error {
	o := opts.Clone()
	o.Limit = 1
	return m.FindAll(ctx, criteria, o)
}

// Find loads the row with the given key values, in key order.
func (m *Mapper) Find(ctx context.Context, ids ...any) error {
	if err := m.checkKeys(len(ids)); err != nil {
		return err
	}

	b := m.session.Builder()
	parts := make([]string, len(m.keys))
	for i, key := range m.keys {
		parts[i] = b.Quote(key.Column) + " = ?"
	}
	return m.FindOne(ctx, Where(strings.Join(parts, " AND "), ids...), nil)
}

// Save writes the pending changes of the current position. A valid cursor
// updates the row matched by its stored key values; otherwise a new row is
// inserted. Saved rows with keys are reloaded. Pending changes are dropped
// whatever the outcome.
func (m *Mapper) Save(ctx context.Context) (bool, error) {
	if m.Dry() {
		return false, ErrNothingToSave
	}
	if m.readOnly {
		return false, ErrReadOnly
	}

	stored := m.fixData(m.Row())
	update := m.toSave(m.Changes())
	m.changes = make(map[int]Row)

	merged := make(Row, len(stored)+len(update))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}

	var (
		saved  bool
		reload Criteria
	)

	if m.Valid() {
		if err := m.checkKeys(-1); err != nil {
			return false, err
		}
		res, err := m.session.Update(ctx, m.table, merged, m.loadCriteria(stored))
		if err != nil {
			return false, err
		}
		saved = res.RowsAffected > 0
		reload = m.loadCriteria(merged)
	} else {
		auto, hasAuto := m.autoKey()
		switch {
		case hasAuto:
			res, err := m.session.InsertKey(ctx, m.table, merged, auto)
			if err != nil {
				return false, err
			}
			saved = res.RowsAffected > 0 || res.LastInsertID > 0
			if res.LastInsertID > 0 {
				merged[auto] = res.LastInsertID
			}
		default:
			res, err := m.session.Insert(ctx, m.table, merged)
			if err != nil {
				return false, err
			}
			saved = res.RowsAffected > 0
		}
		// Without a generated id the new row cannot be located.
		if len(m.keys) > 0 && (!hasAuto || merged[auto] != nil) {
			reload = m.loadCriteria(merged)
		}
	}

	if saved && !reload.IsEmpty() {
		if err := m.FindOne(ctx, reload, nil); err != nil {
			return saved, err
		}
	}
	return saved, nil
}

func (m *Mapper) autoKey() (string, bool) {
	for _, key := range m.keys {
		if key.Auto {
			return key.Column, true
		}
	}
	return "", false
}

// checkKeys fails without keys, or when n >= 0 differs from the key count.
func (m *Mapper) checkKeys(n int) error {
	if len(m.keys) == 0 {
		return ErrNoKeys
	}
	if n >= 0 && n != len(m.keys) {
		return ErrInsufficientKeys
	}
	return nil
}

func (m *Mapper) loadCriteria(row Row) Criteria {
	b := m.session.Builder()
	parts := make([]string, len(m.keys))
	values := make([]any, len(m.keys))
	for i, key := range m.keys {
		parts[i] = b.Quote(key.Column) + " = ?"
		values[i] = row[key.Column]
	}
	return Where(strings.Join(parts, " AND "), values...)
}

// Reset clears rows, changes and position to stage a new row.
func (m *Mapper) Reset() {
	m.rows = nil
	m.changes = make(map[int]Row)
	m.ptr = -1
}

// Count returns the number of loaded rows, or 0 when the cursor is invalid.
func (m *Mapper) Count() int {
	if !m.Valid() {
		return 0
	}
	return len(m.rows)
}

// Position returns the cursor position; -1 means no row.
func (m *Mapper) Position() int {
	return m.ptr
}

// Advance moves to the next position and reports whether it holds a row.
// Advancing past the last row stages a new row there.
func (m *Mapper) Advance() bool {
	m.ptr++
	return m.Valid()
}

// Rewind moves to the first row, or to -1 when nothing is loaded.
func (m *Mapper) Rewind() {
	if len(m.rows) > 0 {
		m.ptr = 0
		return
	}
	m.ptr = -1
}

// Valid reports whether the cursor points at a loaded row.
func (m *Mapper) Valid() bool {
	return m.ptr >= 0 && m.ptr < len(m.rows)
}

func (m *Mapper) pos() int {
	return max(0, m.ptr)
}

// Row returns the stored current row, or an empty Row.
func (m *Mapper) Row() Row {
	if !m.Valid() {
		return Row{}
	}
	return m.rows[m.ptr]
}

// Changes returns the pending changes of the current position.
func (m *Mapper) Changes() Row {
	if c, ok := m.changes[m.pos()]; ok {
		return c
	}
	return Row{}
}

// Dirty reports whether the current position has pending changes.
func (m *Mapper) Dirty() bool {
	return len(m.changes[m.pos()]) > 0
}

// Dry reports whether the current position has no pending changes.
func (m *Mapper) Dry() bool {
	return !m.Dirty()
}

// Has reports whether column is readable at the current position.
func (m *Mapper) Has(column string) bool {
	if _, ok := m.accessors[column]; ok {
		return true
	}
	if _, ok := m.Changes()[column]; ok {
		return true
	}
	_, ok := m.Row()[column]
	return ok
}

// Get returns the pending value of column, or its stored value cast out.
func (m *Mapper) Get(column string) (any, error) {
	if a, ok := m.accessors[column]; ok {
		return a.Get(m), nil
	}
	if err := m.checkColumn(column); err != nil {
		return nil, err
	}
	if v, ok := m.Changes()[column]; ok {
		return v, nil
	}
	v, ok := m.Row()[column]
	if !ok {
		return nil, &ColumnError{Column: column, Err: ErrColumnNotExists}
	}
	return m.castOut(column, v), nil
}

// Set records a pending change at the current position.
func (m *Mapper) Set(column string, value any) error {
	if a, ok := m.accessors[column]; ok {
		if a.Set != nil {
			a.Set(m, value)
		}
		return nil
	}
	if err := m.checkColumn(column); err != nil {
		return err
	}

	p := m.pos()
	if m.changes[p] == nil {
		m.changes[p] = Row{}
	}
	m.changes[p][column] = value
	return nil
}

// Unset drops a pending change at the current position.
func (m *Mapper) Unset(column string) error {
	if a, ok := m.accessors[column]; ok {
		if a.Unset != nil {
			a.Unset(m)
		}
		return nil
	}
	if err := m.checkColumn(column); err != nil {
		return err
	}
	delete(m.changes[m.pos()], column)
	return nil
}

func (m *Mapper) checkColumn(column string) error {
	if _, ok := m.ignoreSet[column]; ok {
		return &ColumnError{Column: column, Err: ErrColumnForbidden}
	}
	if len(m.loadSet) > 0 {
		if _, ok := m.loadSet[column]; !ok {
			return &ColumnError{Column: column, Err: ErrColumnNotExists}
		}
	}
	return nil
}

// FromMap replaces the pending changes of the current position with data.
func (m *Mapper) FromMap(data Row) {
	m.changes[m.pos()] = m.fixData(data)
}

// ToMap returns the current row cast out and overlaid with the pending
// changes, plus every accessor value.
func (m *Mapper) ToMap() Row {
	row := m.castOutRow(m.Row())
	for k, v := range m.Changes() {
		row[k] = v
	}
	row = m.fixData(row)
	for _, name := range m.accessorNames {
		if _, ok := row[name]; !ok {
			row[name] = m.accessors[name].Get(m)
		}
	}
	return row
}

// All returns ToMap for every loaded row. The cursor position is kept.
func (m *Mapper) All() []Row {
	ptr := m.ptr
	defer func() { m.ptr = ptr }()

	out := make([]Row, 0, len(m.rows))
	for m.Rewind(); m.Valid(); m.Advance() {
		out = append(out, m.ToMap())
	}
	return out
}

// MarshalJSON encodes All.
func (m *Mapper) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.All())
}

func (m *Mapper) fixData(data Row) Row {
	row := make(Row, len(data))
	for k, v := range data {
		if _, ok := m.ignoreSet[k]; ok {
			continue
		}
		if len(m.loadSet) > 0 {
			if _, ok := m.loadSet[k]; !ok {
				continue
			}
		}
		row[k] = v
	}
	return row
}

func (m *Mapper) toSave(data Row) Row {
	row := m.fixData(data)
	for k, v := range row {
		row[k] = CastIn(m.casts[k], v)
	}
	return row
}

func (m *Mapper) castOut(column string, v any) any {
	return CastOut(m.casts[column], v)
}

func (m *Mapper) castOutRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = m.castOut(k, v)
	}
	return out
}

func (m *Mapper) castOutAll(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = m.castOutRow(row)
	}
	return out
}
