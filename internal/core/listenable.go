package core

import (
	"context"
	"database/sql"
)

type rootKey struct{}
type trashedKey struct{}

// withRoot marks ctx with the outermost operation unless already marked.
func withRoot(ctx context.Context, op Operation) context.Context {
	if _, ok := ctx.Value(rootKey{}).(Operation); ok {
		return ctx
	}
	return context.WithValue(ctx, rootKey{}, op)
}

func rootOf(ctx context.Context, op Operation) Operation {
	if root, ok := ctx.Value(rootKey{}).(Operation); ok {
		return root
	}
	return op
}

// WithTrashed returns a context whose selects, counts and pages include soft
// deleted rows.
func WithTrashed(ctx context.Context) context.Context {
	return context.WithValue(ctx, trashedKey{}, true)
}

func trashed(ctx context.Context) bool {
	v, _ := ctx.Value(trashedKey{}).(bool)
	return v
}

// ListenableConnection runs before and after hooks around every data
// operation of the embedded Connection.
type ListenableConnection struct {
	*Connection
	dispatcher *Dispatcher
}

// NewListenableConnection wraps conn. A nil dispatcher is replaced by an
// empty one.
func NewListenableConnection(conn *Connection, d *Dispatcher) *ListenableConnection {
	if d == nil {
		d = NewDispatcher()
	}
	return &ListenableConnection{Connection: conn, dispatcher: d}
}

// Dispatcher returns the hook registry.
func (l *ListenableConnection) Dispatcher() *Dispatcher {
	return l.dispatcher
}

// run dispatches ev around exec.
func (l *ListenableConnection) run(ctx context.Context, ev *Event, exec func(context.Context, *Event) (Result, error)) (Result, error) {
	ev.Conn = l
	ev.Root = rootOf(ctx, ev.Operation)
	ev.WithTrashed = ev.WithTrashed || trashed(ctx)

	out := l.dispatcher.dispatchBefore(ctx, ev)
	if out.stop {
		return out.result, out.err
	}
	ev = out.event

	res, err := exec(withRoot(ctx, ev.Root), ev)
	if err != nil {
		return res, err
	}
	return l.dispatcher.dispatchAfter(ctx, ev, res), nil
}

// Select runs the select hooks around Connection.Select.
func (l *ListenableConnection) Select(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) ([]Row, error) {
	ev := &Event{Operation: OpSelect, Table: table, Criteria: criteria, Options: opts}
	res, err := l.run(ctx, ev, func(ctx context.Context, ev *Event) (Result, error) {
		rows, err := l.Connection.Select(ctx, ev.Table, ev.Criteria, ev.Options)
		return Result{Rows: rows}, err
	})
	return res.Rows, err
}

// SelectWithTrashed selects including soft deleted rows.
func (l *ListenableConnection) SelectWithTrashed(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) ([]Row, error) {
	return l.Select(WithTrashed(ctx), table, criteria, opts)
}

// SelectOne selects through the select hooks with a limit of one.
func (l *ListenableConnection) SelectOne(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (Row, error) {
	return selectOne(ctx, l, table, criteria, opts)
}

// Count runs the count hooks around Connection.Count.
func (l *ListenableConnection) Count(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (int64, error) {
	ev := &Event{Operation: OpCount, Table: table, Criteria: criteria, Options: opts}
	res, err := l.run(ctx, ev, func(ctx context.Context, ev *Event) (Result, error) {
		n, err := l.Connection.Count(ctx, ev.Table, ev.Criteria, ev.Options)
		return Result{Count: n}, err
	})
	return res.Count, err
}

// Paginate runs the paginate hooks. The count and select it issues run
// their own hooks with Root set to OpPaginate.
func (l *ListenableConnection) Paginate(ctx context.Context, table string, page int, criteria Criteria, opts *SelectOptions) (*Page, error) {
	return l.paginate(ctx, table, page, criteria, opts, false)
}

// SimplePaginate is Paginate without counting.
func (l *ListenableConnection) SimplePaginate(ctx context.Context, table string, page int, criteria Criteria, opts *SelectOptions) (*Page, error) {
	return l.paginate(ctx, table, page, criteria, opts, true)
}

func (l *ListenableConnection) paginate(ctx context.Context, table string, page int, criteria Criteria, opts *SelectOptions, simple bool) (*Page, error) {
	ev := &Event{Operation: OpPaginate, Table: table, Page: page, Criteria: criteria, Options: opts, Simple: simple}
	res, err := l.run(ctx, ev, func(ctx context.Context, ev *Event) (Result, error) {
		p, err := paginate(ctx, l, ev.Table, ev.Page, ev.Criteria, ev.Options, l.paginationSize, !ev.Simple)
		return Result{Page: p}, err
	})
	return res.Page, err
}

// Insert runs the insert hooks around Connection.Insert.
func (l *ListenableConnection) Insert(ctx context.Context, table string, data Row) (ExecResult, error) {
	ev := &Event{Operation: OpInsert, Table: table, Data: data}
	res, err := l.run(ctx, ev, l.insert)
	return res.Exec, err
}

// InsertKey runs the insert hooks around Connection.InsertKey.
func (l *ListenableConnection) InsertKey(ctx context.Context, table string, data Row, key string) (ExecResult, error) {
	ev := &Event{Operation: OpInsert, Table: table, Data: data, LoadKey: key}
	res, err := l.run(ctx, ev, l.insert)
	return res.Exec, err
}

// InsertLoad runs the insert hooks and reads the row back through Select.
func (l *ListenableConnection) InsertLoad(ctx context.Context, table string, data Row, key string) (Row, error) {
	ev := &Event{Operation: OpInsert, Table: table, Data: data, Load: true, LoadKey: key}
	res, err := l.run(ctx, ev, l.insert)
	return res.Row, err
}

func (l *ListenableConnection) insert(ctx context.Context, ev *Event) (Result, error) {
	if ev.Load {
		row, err := insertLoad(ctx, l.Connection, l, ev.Table, ev.Data, ev.LoadKey)
		return Result{Row: row}, err
	}
	if ev.LoadKey != "" {
		res, err := l.Connection.InsertKey(ctx, ev.Table, ev.Data, ev.LoadKey)
		return Result{Exec: res}, err
	}
	res, err := l.Connection.Insert(ctx, ev.Table, ev.Data)
	return Result{Exec: res}, err
}

// Update runs the update hooks around Connection.Update.
func (l *ListenableConnection) Update(ctx context.Context, table string, data Row, criteria Criteria) (ExecResult, error) {
	ev := &Event{Operation: OpUpdate, Table: table, Data: data, Criteria: criteria}
	res, err := l.run(ctx, ev, l.update)
	return res.Exec, err
}

// UpdateLoad runs the update hooks and reads the row back through Select.
func (l *ListenableConnection) UpdateLoad(ctx context.Context, table string, data Row, criteria Criteria) (Row, error) {
	ev := &Event{Operation: OpUpdate, Table: table, Data: data, Criteria: criteria, Load: true}
	res, err := l.run(ctx, ev, l.update)
	return res.Row, err
}

func (l *ListenableConnection) update(ctx context.Context, ev *Event) (Result, error) {
	if ev.Load {
		row, err := updateLoad(ctx, l.Connection, l, ev.Table, ev.Data, ev.Criteria)
		return Result{Row: row}, err
	}
	res, err := l.Connection.Update(ctx, ev.Table, ev.Data, ev.Criteria)
	return Result{Exec: res}, err
}

// Delete runs the delete hooks around Connection.Delete.
func (l *ListenableConnection) Delete(ctx context.Context, table string, criteria Criteria) (ExecResult, error) {
	ev := &Event{Operation: OpDelete, Table: table, Criteria: criteria}
	res, err := l.run(ctx, ev, l.delete)
	return res.Exec, err
}

// DeleteLoad runs the delete hooks and returns the rows selected before
// the delete.
func (l *ListenableConnection) DeleteLoad(ctx context.Context, table string, criteria Criteria) ([]Row, error) {
	ev := &Event{Operation: OpDelete, Table: table, Criteria: criteria, Load: true}
	res, err := l.run(ctx, ev, l.delete)
	return res.Rows, err
}

// ForceDelete deletes rows even when a hook would soft delete them.
func (l *ListenableConnection) ForceDelete(ctx context.Context, table string, criteria Criteria) (ExecResult, error) {
	ev := &Event{Operation: OpDelete, Table: table, Criteria: criteria, Force: true}
	res, err := l.run(ctx, ev, l.delete)
	return res.Exec, err
}

func (l *ListenableConnection) delete(ctx context.Context, ev *Event) (Result, error) {
	if ev.Load {
		rows, err := deleteLoad(ctx, l.Connection, l, ev.Table, ev.Criteria)
		return Result{Rows: rows}, err
	}
	res, err := l.Connection.Delete(ctx, ev.Table, ev.Criteria)
	return Result{Exec: res}, err
}

// InsertBatch runs the insertBatch hooks around Connection.InsertBatch.
func (l *ListenableConnection) InsertBatch(ctx context.Context, table string, rows []Row) (ExecResult, error) {
	ev := &Event{Operation: OpInsertBatch, Table: table, Rows: rows}
	res, err := l.run(ctx, ev, l.insertBatch)
	return res.Exec, err
}

// InsertBatchLoad runs the insertBatch hooks, then selects with criteria.
func (l *ListenableConnection) InsertBatchLoad(ctx context.Context, table string, rows []Row, criteria Criteria) ([]Row, error) {
	ev := &Event{Operation: OpInsertBatch, Table: table, Rows: rows, Criteria: criteria, Load: true}
	res, err := l.run(ctx, ev, l.insertBatch)
	return res.Rows, err
}

func (l *ListenableConnection) insertBatch(ctx context.Context, ev *Event) (Result, error) {
	if ev.Load {
		rows, err := insertBatchLoad(ctx, l.Connection, l, ev.Table, ev.Rows, ev.Criteria)
		return Result{Rows: rows}, err
	}
	res, err := l.Connection.InsertBatch(ctx, ev.Table, ev.Rows)
	return Result{Exec: res}, err
}

// Save updates or inserts through the hooked operations.
func (l *ListenableConnection) Save(ctx context.Context, table string, data Row, criteria Criteria) (ExecResult, error) {
	return save(ctx, l, table, data, criteria)
}

// Transact runs fn in a transaction. The ListenableConnection passed to fn
// shares this connection's dispatcher.
func (l *ListenableConnection) Transact(ctx context.Context, fn func(tx *ListenableConnection) error) error {
	return l.TransactTx(ctx, nil, fn)
}

// TransactTx is Transact with explicit transaction options.
func (l *ListenableConnection) TransactTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *ListenableConnection) error) error {
	return l.Connection.TransactTx(ctx, opts, func(tx *Connection) error {
		if tx == l.Connection {
			return fn(l)
		}
		return fn(&ListenableConnection{Connection: tx, dispatcher: l.dispatcher})
	})
}
