package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Transact runs fn inside a transaction. The Connection passed to fn is
// bound to the transaction.
//
// Nested calls on a bound Connection reuse the open transaction and return
// fn's error unchanged; only the outermost call commits (fn returned nil)
// or rolls back (fn returned an error or panicked).
//
// The transaction belongs to the bound Connection only. Inside fn, use tx:
// calling Transact (or any statement) on the original Connection runs
// outside the transaction on another pooled connection, and blocks forever
// when the pool is limited to one connection.
//
// Example:
//
//	err := conn.Transact(ctx, func(tx *core.Connection) error {
//	    if _, err := tx.Insert(ctx, "orders", order); err != nil {
//	        return err
//	    }
//	    _, err := tx.Update(ctx, "stock", core.Row{"qty": qty}, core.Where("id = ?", id))
//	    return err
//	})
func (c *Connection) Transact(ctx context.Context, fn func(tx *Connection) error) error {
	return c.TransactTx(ctx, nil, fn)
}

// TransactTx is Transact with explicit transaction options. opts are ignored
// when a transaction is already active.
func (c *Connection) TransactTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *Connection) error) (err error) {
	if c.tx != nil {
		return fn(c)
	}

	txID := uuid.NewString()
	ctx, span := c.tracer.StartSpan(ctx, "sqlrow.transaction")
	defer span.End()
	span.SetAttributes(attribute.String("db.transaction.id", txID))

	sqlTx, err := c.sqlDB.BeginTx(ctx, opts)
	if err != nil {
		c.logger.Error("transaction begin failed", "database", c.driverName, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return WrapError(err, "begin transaction")
	}
	c.logger.Debug("transaction started", "tx_id", txID, "database", c.driverName)

	bound := *c
	bound.tx = sqlTx
	bound.txID = txID

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			c.logger.Error("transaction rolled back after panic", "tx_id", txID, "panic", fmt.Sprint(p))
			panic(p)
		}
	}()

	if err = fn(&bound); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			c.logger.Error("transaction rollback failed", "tx_id", txID, "error", rbErr)
		}
		c.logger.Warn("transaction rolled back", "tx_id", txID, "error", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		c.logger.Error("transaction commit failed", "tx_id", txID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return WrapError(err, "commit transaction")
	}

	c.logger.Debug("transaction committed", "tx_id", txID)
	span.SetStatus(codes.Ok, "")
	return nil
}
