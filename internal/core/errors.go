package core

import (
	"errors"
	"fmt"

	"github.com/coregx/sqlrow/internal/dialects"
)

// Predefined errors returned by the builder, the connection and the mapper.
var (
	// ErrSubQueryAlias is returned when a sub query select has no alias.
	ErrSubQueryAlias = errors.New("sub query needs an alias")
	// ErrOrderRequired is returned when the dialect needs ORDER BY to paginate.
	ErrOrderRequired = dialects.ErrOrderRequired
	// ErrNoInsertData is returned by InsertBatch for an empty row list.
	ErrNoInsertData = errors.New("no data to be inserted")
	// ErrInvalidRow is wrapped by RowMismatchError.
	ErrInvalidRow = errors.New("invalid data")
	// ErrNoData is returned when an insert or update has no columns.
	ErrNoData = errors.New("no columns to write")
	// ErrEmptyData is returned by CriteriaIn for an empty value list.
	ErrEmptyData = errors.New("data was empty")
	// ErrConnect wraps connection and init script failures.
	ErrConnect = errors.New("unable to connect database")

	// ErrReadOnly is returned when writing through a read-only mapper.
	ErrReadOnly = errors.New("this mapper is readonly")
	// ErrNoKeys is returned by keyed mapper operations on a mapper without keys.
	ErrNoKeys = errors.New("this mapper has no keys")
	// ErrInsufficientKeys is returned when Find gets a wrong number of key values.
	ErrInsufficientKeys = errors.New("insufficient keys")
	// ErrNothingToSave is returned by Save when the current row has no changes.
	ErrNothingToSave = errors.New("no data to be saved")
	// ErrColumnForbidden is returned when accessing an ignored column.
	ErrColumnForbidden = errors.New("column access is forbidden")
	// ErrColumnNotExists is returned when accessing an unknown column.
	ErrColumnNotExists = errors.New("column not exists")
)

// RowMismatchError reports a batch row whose columns differ from the first row.
type RowMismatchError struct {
	Position int
}

func (e *RowMismatchError) Error() string {
	return fmt.Sprintf("invalid data at position: %d", e.Position)
}

// Unwrap returns ErrInvalidRow.
func (e *RowMismatchError) Unwrap() error {
	return ErrInvalidRow
}

// ColumnError names the column behind ErrColumnForbidden or ErrColumnNotExists.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return e.Err.Error() + ": " + e.Column
}

// Unwrap returns the underlying sentinel.
func (e *ColumnError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
