package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coregx/sqlrow/internal/tracer"
)

// prepareStatement prepares query on the bound transaction or through the
// statement cache. The caller must call release once done with the
// statement.
func (c *Connection) prepareStatement(ctx context.Context, query string) (*sql.Stmt, func(), error) {
	if c.tx != nil {
		// Transactions bypass the statement cache.
		stmt, err := c.tx.PrepareContext(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		return stmt, func() { _ = stmt.Close() }, nil
	}

	if stmt, release, ok := c.stmtCache.Acquire(query); ok {
		return stmt, release, nil
	}

	stmt, err := c.sqlDB.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	stmt, release := c.stmtCache.Store(query, stmt)
	return stmt, release, nil
}

// Query runs a statement returning rows. query uses ? placeholders.
func (c *Connection) Query(ctx context.Context, query string, values ...any) ([]Row, error) {
	ctx, span := c.tracer.StartSpan(ctx, "sqlrow.query")
	defer span.End()

	bound := c.rebind(query)
	start := time.Now()
	rows, err := c.fetch(ctx, bound, values)
	c.finish(ctx, span, query, bound, values, time.Since(start), int64(len(rows)), err)

	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Connection) fetch(ctx context.Context, query string, values []any) ([]Row, error) {
	stmt, release, err := c.prepareStatement(ctx, query)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := stmt.QueryContext(ctx, values...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanRows(rows)
}

// Exec runs a statement without rows. query uses ? placeholders.
func (c *Connection) Exec(ctx context.Context, query string, values ...any) (ExecResult, error) {
	ctx, span := c.tracer.StartSpan(ctx, "sqlrow.exec")
	defer span.End()

	bound := c.rebind(query)
	start := time.Now()
	res, err := c.exec(ctx, bound, values)
	c.finish(ctx, span, query, bound, values, time.Since(start), res.RowsAffected, err)

	if err != nil {
		return ExecResult{}, err
	}
	return res, nil
}

func (c *Connection) exec(ctx context.Context, query string, values []any) (ExecResult, error) {
	stmt, release, err := c.prepareStatement(ctx, query)
	if err != nil {
		return ExecResult{}, err
	}
	defer release()

	result, err := stmt.ExecContext(ctx, values...)
	if err != nil {
		return ExecResult{}, err
	}

	var res ExecResult
	res.RowsAffected, _ = result.RowsAffected()
	// Some drivers (lib/pq) do not report insert ids.
	if id, err := result.LastInsertId(); err == nil {
		res.LastInsertID = id
		c.lastID.Store(id)
	}
	return res, nil
}

// finish logs, traces, meters and reports one statement.
func (c *Connection) finish(ctx context.Context, span tracer.Span, query, bound string, values []any, elapsed time.Duration, rows int64, err error) {
	operation := tracer.DetectOperation(bound)

	if err != nil {
		masked := c.sanitizer.Mask(query, values)
		c.logger.Error("query execution failed",
			"sql", bound,
			"query", c.Stringify(query, masked),
			"params", c.sanitizer.Format(masked),
			"duration_ms", elapsed.Milliseconds(),
			"database", c.driverName,
			"tx_id", c.txID,
			"error", err,
		)
	} else {
		c.logger.Info("query executed",
			"sql", bound,
			"params", c.sanitizer.MaskAndFormat(query, values),
			"duration_ms", elapsed.Milliseconds(),
			"rows_affected", rows,
			"database", c.driverName,
			"tx_id", c.txID,
		)
	}

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          bound,
		Duration:     elapsed,
		RowsAffected: rows,
		Error:        err,
		Database:     c.dialect.Name(),
		Operation:    operation,
		TxID:         c.txID,
	})

	if c.metrics != nil {
		c.metrics.Observe(c.dialect.Name(), operation, elapsed, err)
	}

	c.invokeHook(ctx, QueryEvent{
		SQL:          bound,
		Args:         values,
		Duration:     elapsed,
		RowsAffected: rows,
		Error:        err,
		Operation:    operation,
		TxID:         c.txID,
	})
}

// scanRows reads every row into a Row. Byte slices are returned as strings.
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("scan: failed to get columns: %w", err)
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}

		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: rows iteration failed: %w", err)
	}
	return result, nil
}
