package core

import (
	"context"
	"time"
)

// QueryEvent describes one executed statement.
// It is passed to QueryHook callbacks for logging, metrics or debugging.
type QueryEvent struct {
	// SQL is the executed statement after placeholder rebinding.
	SQL string
	// Args are the bound values.
	Args []any
	// Duration is how long the statement took.
	Duration time.Duration
	// RowsAffected is the affected row count for writes and the fetched row
	// count for reads.
	RowsAffected int64
	// Error is nil on success.
	Error error
	// Operation is SELECT, INSERT, UPDATE, DELETE or UNKNOWN.
	Operation string
	// TxID identifies the enclosing Transact call, if any.
	TxID string
}

// QueryHook is a callback invoked after each statement.
//
// Example:
//
//	conn, _ := sqlrow.Open("sqlite", ":memory:",
//	    sqlrow.WithQueryHook(func(ctx context.Context, e sqlrow.QueryEvent) {
//	        slog.Info("query", "sql", e.SQL, "duration", e.Duration, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

// invokeHook calls the query hook if set.
func (c *Connection) invokeHook(ctx context.Context, event QueryEvent) {
	if c.queryHook != nil {
		c.queryHook(ctx, event)
	}
}
