package core

import (
	"context"
	"sync/atomic"
	"time"
)

// AuditColumns names the audit columns. An empty name disables that column.
type AuditColumns struct {
	CreatedAt string
	UpdatedAt string
	DeletedAt string
	CreatedBy string
	UpdatedBy string
	DeletedBy string
}

// DefaultAuditColumns returns the conventional audit column names.
func DefaultAuditColumns() AuditColumns {
	return AuditColumns{
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
		DeletedAt: "deleted_at",
		CreatedBy: "created_by",
		UpdatedBy: "updated_by",
		DeletedBy: "deleted_by",
	}
}

// Auditor fills timestamp and blame columns and turns deletes into soft
// deletes. It works as a set of hooks on a Dispatcher.
type Auditor struct {
	columns    AuditColumns
	blameTo    any
	timeFormat string
	now        func() time.Time
	enabled    atomic.Bool
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithAuditColumns overrides the column names.
func WithAuditColumns(columns AuditColumns) AuditorOption {
	return func(a *Auditor) {
		a.columns = columns
	}
}

// WithBlameTo sets the identity written to the *_by columns. The *_by
// columns are left alone while no identity is set.
func WithBlameTo(identity any) AuditorOption {
	return func(a *Auditor) {
		a.blameTo = identity
	}
}

// WithTimeFormat sets the layout timestamps are formatted with.
func WithTimeFormat(layout string) AuditorOption {
	return func(a *Auditor) {
		if layout != "" {
			a.timeFormat = layout
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) AuditorOption {
	return func(a *Auditor) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAuditor creates an enabled Auditor with the default columns.
func NewAuditor(opts ...AuditorOption) *Auditor {
	a := &Auditor{
		columns:    DefaultAuditColumns(),
		timeFormat: DateTimeLayout,
		now:        time.Now,
	}
	a.enabled.Store(true)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetEnabled switches auditing on or off.
func (a *Auditor) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
}

// Enabled reports whether auditing is on.
func (a *Auditor) Enabled() bool {
	return a.enabled.Load()
}

// Columns returns the configured column names.
func (a *Auditor) Columns() AuditColumns {
	return a.columns
}

// Timestamp returns the current time in the configured format.
func (a *Auditor) Timestamp() string {
	return a.now().Format(a.timeFormat)
}

// Register adds the audit hooks to d.
func (a *Auditor) Register(d *Dispatcher) []HookID {
	return []HookID{
		d.Before(OpSelect, a.excludeTrashed),
		d.Before(OpCount, a.excludeTrashed),
		d.Before(OpInsert, a.stampInsert),
		d.Before(OpInsertBatch, a.stampInsertBatch),
		d.Before(OpUpdate, a.stampUpdate),
		d.Before(OpDelete, a.softDelete),
	}
}

func (a *Auditor) blame(column string) (string, bool) {
	if column == "" || blank(a.blameTo) {
		return "", false
	}
	return column, true
}

func (a *Auditor) excludeTrashed(_ context.Context, ev *Event) Outcome {
	if !a.Enabled() || ev.WithTrashed || a.columns.DeletedAt == "" {
		return Continue(ev)
	}
	if ev.Options != nil && ev.Options.Sub {
		return Continue(ev)
	}

	b := ev.Conn.Builder()
	prefix := b.Table(ev.Table)
	if ev.Options != nil && ev.Options.Alias != "" {
		prefix = ev.Options.Alias
	}
	ev.Criteria = MergeCriteria(ev.Criteria, Where(b.Column(a.columns.DeletedAt, prefix)+" IS NULL"))
	return Continue(ev)
}

func (a *Auditor) stampInsert(_ context.Context, ev *Event) Outcome {
	if !a.Enabled() {
		return Continue(ev)
	}

	data := make(Row, len(ev.Data)+4)
	for k, v := range ev.Data {
		data[k] = v
	}

	if col := a.columns.CreatedAt; col != "" && blank(data[col]) {
		data[col] = a.Timestamp()
		if a.columns.UpdatedAt != "" {
			data[a.columns.UpdatedAt] = data[col]
		}
	}
	if col, ok := a.blame(a.columns.CreatedBy); ok && blank(data[col]) {
		data[col] = a.blameTo
		if a.columns.UpdatedBy != "" {
			data[a.columns.UpdatedBy] = a.blameTo
		}
	}

	ev.Data = data
	return Continue(ev)
}

func (a *Auditor) stampInsertBatch(_ context.Context, ev *Event) Outcome {
	if !a.Enabled() {
		return Continue(ev)
	}

	add := Row{}
	if col := a.columns.CreatedAt; col != "" {
		add[col] = a.Timestamp()
		if a.columns.UpdatedAt != "" {
			add[a.columns.UpdatedAt] = add[col]
		}
	}
	if col, ok := a.blame(a.columns.CreatedBy); ok {
		add[col] = a.blameTo
		if a.columns.UpdatedBy != "" {
			add[a.columns.UpdatedBy] = a.blameTo
		}
	}
	if len(add) == 0 {
		return Continue(ev)
	}

	rows := make([]Row, len(ev.Rows))
	for i, row := range ev.Rows {
		merged := make(Row, len(row)+len(add))
		for k, v := range add {
			merged[k] = v
		}
		for k, v := range row {
			merged[k] = v
		}
		rows[i] = merged
	}
	ev.Rows = rows
	return Continue(ev)
}

func (a *Auditor) stampUpdate(_ context.Context, ev *Event) Outcome {
	if !a.Enabled() {
		return Continue(ev)
	}

	data := make(Row, len(ev.Data)+2)
	for k, v := range ev.Data {
		data[k] = v
	}
	if col := a.columns.UpdatedAt; col != "" {
		data[col] = a.Timestamp()
	}
	if col, ok := a.blame(a.columns.UpdatedBy); ok {
		data[col] = a.blameTo
	}

	ev.Data = data
	return Continue(ev)
}

// softDelete replaces the delete with an update of the deleted columns.
// Loaded soft deletes return the rows as they are after the update.
func (a *Auditor) softDelete(ctx context.Context, ev *Event) Outcome {
	if !a.Enabled() || ev.Force {
		return Continue(ev)
	}

	data := Row{}
	if col := a.columns.DeletedAt; col != "" {
		data[col] = a.Timestamp()
	}
	if col, ok := a.blame(a.columns.DeletedBy); ok {
		data[col] = a.blameTo
	}
	if len(data) == 0 {
		return Continue(ev)
	}

	res, err := ev.Conn.Connection.Update(ctx, ev.Table, data, ev.Criteria)
	if err != nil {
		return Abort(err)
	}
	if !ev.Load {
		return ShortCircuit(Result{Exec: res})
	}

	rows, err := ev.Conn.Select(WithTrashed(ctx), ev.Table, ev.Criteria, nil)
	if err != nil {
		return Abort(err)
	}
	return ShortCircuit(Result{Rows: rows})
}

// blank reports whether v is nil or a zero scalar.
func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == "0"
	case []byte:
		return len(x) == 0
	case bool:
		return !x
	case time.Time:
		return x.IsZero()
	}
	if n, ok := toInt(v); ok {
		return n == 0
	}
	return false
}
