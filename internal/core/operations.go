package core

import (
	"context"
)

// Session is the data access surface shared by Connection and
// ListenableConnection. Mappers and load helpers depend only on it.
type Session interface {
	Builder() SQLBuilder
	Select(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) ([]Row, error)
	SelectOne(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (Row, error)
	Count(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (int64, error)
	Paginate(ctx context.Context, table string, page int, criteria Criteria, opts *SelectOptions) (*Page, error)
	SimplePaginate(ctx context.Context, table string, page int, criteria Criteria, opts *SelectOptions) (*Page, error)
	Insert(ctx context.Context, table string, data Row) (ExecResult, error)
	InsertKey(ctx context.Context, table string, data Row, key string) (ExecResult, error)
	InsertLoad(ctx context.Context, table string, data Row, key string) (Row, error)
	Update(ctx context.Context, table string, data Row, criteria Criteria) (ExecResult, error)
	Delete(ctx context.Context, table string, criteria Criteria) (ExecResult, error)
	InsertBatch(ctx context.Context, table string, rows []Row) (ExecResult, error)
}

// rowReader is what the load-after-write helpers read back through, so a
// ListenableConnection reloads with its own hooks applied.
type rowReader interface {
	Select(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) ([]Row, error)
	SelectOne(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (Row, error)
}

// Select returns the rows matched by criteria.
func (c *Connection) Select(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) ([]Row, error) {
	st, err := c.builder.Select(table, criteria, opts)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, st.SQL, st.Values...)
}

// SelectOne returns the first matched row, or nil when nothing matched.
func (c *Connection) SelectOne(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (Row, error) {
	return selectOne(ctx, c, table, criteria, opts)
}

func selectOne(ctx context.Context, r rowReader, table string, criteria Criteria, opts *SelectOptions) (Row, error) {
	o := opts.Clone()
	o.Limit = 1

	rows, err := r.Select(ctx, table, criteria, o)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Count returns the number of rows the select would return. Orders are dropped.
func (c *Connection) Count(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (int64, error) {
	o := opts.Clone()
	o.Orders = nil

	st, err := c.builder.Select(table, criteria, o)
	if err != nil {
		return 0, err
	}

	// The wrapper is not a user select: modifiers already ran on st.
	wrapper := c.plainBuilder()
	counter, err := wrapper.Select(st.SQL, Criteria{}, &SelectOptions{
		Sub:     true,
		Alias:   "_c",
		Columns: Columns{}.As("_d", wrapper.Raw("COUNT(*)")),
	})
	if err != nil {
		return 0, err
	}

	rows, err := c.Query(ctx, counter.SQL, append(st.Values, counter.Values...)...)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	n, _ := rows[0].Int("_d")
	return n, nil
}

// Paginate returns the requested page together with the total row count.
func (c *Connection) Paginate(ctx context.Context, table string, page int, criteria Criteria, opts *SelectOptions) (*Page, error) {
	return paginate(ctx, c, table, page, criteria, opts, c.paginationSize, true)
}

// SimplePaginate returns the requested page without counting. LastPage is
// the current page plus one and Total is nil.
func (c *Connection) SimplePaginate(ctx context.Context, table string, page int, criteria Criteria, opts *SelectOptions) (*Page, error) {
	return paginate(ctx, c, table, page, criteria, opts, c.paginationSize, false)
}

// Insert inserts one row.
func (c *Connection) Insert(ctx context.Context, table string, data Row) (ExecResult, error) {
	st, err := c.builder.Insert(table, data)
	if err != nil {
		return ExecResult{}, err
	}
	return c.Exec(ctx, st.SQL, st.Values...)
}

// InsertLoad inserts one row and reads it back by its generated key.
// It returns nil when nothing was inserted.
func (c *Connection) InsertLoad(ctx context.Context, table string, data Row, key string) (Row, error) {
	return insertLoad(ctx, c, c, table, data, key)
}

// InsertKey inserts one row and reports the generated value of key as
// LastInsertID. Dialects without driver insert ids use a RETURNING clause.
func (c *Connection) InsertKey(ctx context.Context, table string, data Row, key string) (ExecResult, error) {
	st, err := c.builder.Insert(table, data)
	if err != nil {
		return ExecResult{}, err
	}

	if c.dialect.Name() != "postgres" {
		return c.Exec(ctx, st.SQL, st.Values...)
	}

	rows, err := c.Query(ctx, st.SQL+" RETURNING "+c.builder.Column(key, ""), st.Values...)
	if err != nil || len(rows) == 0 {
		return ExecResult{}, err
	}
	id, _ := rows[0].Int(key)
	c.lastID.Store(id)
	return ExecResult{RowsAffected: int64(len(rows)), LastInsertID: id}, nil
}

func insertLoad(ctx context.Context, c *Connection, r rowReader, table string, data Row, key string) (Row, error) {
	res, err := c.InsertKey(ctx, table, data, key)
	if err != nil || res.RowsAffected == 0 {
		return nil, err
	}
	return r.SelectOne(ctx, table, Where(c.builder.Column(key, "")+" = ?", res.LastInsertID), nil)
}

// Update updates the rows matched by criteria.
func (c *Connection) Update(ctx context.Context, table string, data Row, criteria Criteria) (ExecResult, error) {
	st, err := c.builder.Update(table, data, criteria)
	if err != nil {
		return ExecResult{}, err
	}
	return c.Exec(ctx, st.SQL, st.Values...)
}

// UpdateLoad updates the rows matched by criteria and returns the first of
// them as stored afterwards.
func (c *Connection) UpdateLoad(ctx context.Context, table string, data Row, criteria Criteria) (Row, error) {
	return updateLoad(ctx, c, c, table, data, criteria)
}

func updateLoad(ctx context.Context, c *Connection, r rowReader, table string, data Row, criteria Criteria) (Row, error) {
	if _, err := c.Update(ctx, table, data, criteria); err != nil {
		return nil, err
	}
	return r.SelectOne(ctx, table, criteria, nil)
}

// Delete deletes the rows matched by criteria.
func (c *Connection) Delete(ctx context.Context, table string, criteria Criteria) (ExecResult, error) {
	st, err := c.builder.Delete(table, criteria)
	if err != nil {
		return ExecResult{}, err
	}
	return c.Exec(ctx, st.SQL, st.Values...)
}

// DeleteLoad deletes the rows matched by criteria and returns them as they
// were before the delete.
func (c *Connection) DeleteLoad(ctx context.Context, table string, criteria Criteria) ([]Row, error) {
	return deleteLoad(ctx, c, c, table, criteria)
}

func deleteLoad(ctx context.Context, c *Connection, r rowReader, table string, criteria Criteria) ([]Row, error) {
	rows, err := r.Select(ctx, table, criteria, nil)
	if err != nil {
		return nil, err
	}
	if _, err := c.Delete(ctx, table, criteria); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertBatch inserts rows with a single statement.
func (c *Connection) InsertBatch(ctx context.Context, table string, rows []Row) (ExecResult, error) {
	st, err := c.builder.InsertBatch(table, rows)
	if err != nil {
		return ExecResult{}, err
	}
	return c.Exec(ctx, st.SQL, st.Values...)
}

// InsertBatchLoad inserts rows, then selects with criteria.
func (c *Connection) InsertBatchLoad(ctx context.Context, table string, rows []Row, criteria Criteria) ([]Row, error) {
	return insertBatchLoad(ctx, c, c, table, rows, criteria)
}

func insertBatchLoad(ctx context.Context, c *Connection, r rowReader, table string, rows []Row, criteria Criteria) ([]Row, error) {
	if _, err := c.InsertBatch(ctx, table, rows); err != nil {
		return nil, err
	}
	return r.Select(ctx, table, criteria, nil)
}

// Save updates the row matched by criteria when it exists and inserts data
// otherwise.
func (c *Connection) Save(ctx context.Context, table string, data Row, criteria Criteria) (ExecResult, error) {
	return save(ctx, c, table, data, criteria)
}

func save(ctx context.Context, s Session, table string, data Row, criteria Criteria) (ExecResult, error) {
	if !criteria.IsEmpty() {
		row, err := s.SelectOne(ctx, table, criteria, nil)
		if err != nil {
			return ExecResult{}, err
		}
		if row != nil {
			return s.Update(ctx, table, data, criteria)
		}
	}
	return s.Insert(ctx, table, data)
}
