package core

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransact_Commit(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)

	err := conn.Transact(ctx, func(tx *Connection) error {
		assert.True(t, tx.InTransaction())
		assert.NotEmpty(t, tx.TxID())
		_, err := tx.Insert(ctx, "demo", Row{"name": "foo"})
		return err
	})
	require.NoError(t, err)
	assert.False(t, conn.InTransaction())

	n, err := conn.Count(ctx, "demo", Criteria{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransact_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)
	boom := errors.New("boom")

	err := conn.Transact(ctx, func(tx *Connection) error {
		if _, err := tx.Insert(ctx, "demo", Row{"name": "foo"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := conn.Count(ctx, "demo", Criteria{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestTransact_RollbackOnPanic(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = conn.Transact(ctx, func(tx *Connection) error {
			_, _ = tx.Insert(ctx, "demo", Row{"name": "foo"})
			panic("boom")
		})
	})

	n, err := conn.Count(ctx, "demo", Criteria{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestTransact_NestedReusesOuter(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)
	inner := errors.New("inner")

	err := conn.Transact(ctx, func(tx *Connection) error {
		outerID := tx.TxID()

		err := tx.Transact(ctx, func(nested *Connection) error {
			assert.Same(t, tx, nested)
			assert.Equal(t, outerID, nested.TxID())
			_, err := nested.Insert(ctx, "demo", Row{"name": "nested"})
			require.NoError(t, err)
			return inner
		})
		assert.ErrorIs(t, err, inner)

		// The inner failure does not roll back; the outer call decides.
		return nil
	})
	require.NoError(t, err)

	n, err := conn.Count(ctx, "demo", Criteria{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransact_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	conn := WrapDB(db, "mysql")
	called := false
	err = conn.Transact(context.Background(), func(*Connection) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_CommitAndRollbackMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := WrapDB(db, "mysql")

	mock.ExpectBegin()
	mock.ExpectPrepare("UPDATE `stock` SET `qty` = \\? WHERE id = \\?").
		ExpectExec().WithArgs(4, 9).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = conn.Transact(context.Background(), func(tx *Connection) error {
		_, err := tx.Update(context.Background(), "stock", Row{"qty": 4}, Where("id = ?", 9))
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectPrepare("DELETE FROM `stock`").
		ExpectExec().WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err = conn.Transact(context.Background(), func(tx *Connection) error {
		_, err := tx.Delete(context.Background(), "stock", Criteria{})
		return err
	})
	assert.EqualError(t, err, "locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_ConnectFailure(t *testing.T) {
	_, err := Open("no-such-driver", "dsn")
	assert.ErrorIs(t, err, ErrConnect)

	_, err = Open("sqlite", ":memory:", WithScripts("CREATE TABLE broken ("))
	assert.ErrorIs(t, err, ErrConnect)
}

func TestOpen_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("refused"))

	conn := WrapDB(db, "postgres")
	err = conn.init(context.Background())
	assert.ErrorIs(t, err, ErrConnect)
	assert.Contains(t, err.Error(), "refused")
}

func TestConnection_PostgresRebindMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := WrapDB(db, "postgres")

	mock.ExpectPrepare(`SELECT \* FROM "users" WHERE id = \$1 AND status = \$2`).
		ExpectQuery().WithArgs(1, "active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), []byte("alice")))

	rows, err := conn.Select(context.Background(), "users", Where("id = ? AND status = ?", 1, "active"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": int64(1), "name": "alice"}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnection_PostgresInsertReturning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := WrapDB(db, "postgres")

	mock.ExpectPrepare(`INSERT INTO "users" \("name"\) VALUES \(\$1\) RETURNING "id"`).
		ExpectQuery().WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectPrepare(`SELECT \* FROM "users" WHERE "id" = \$1 LIMIT 1`).
		ExpectQuery().WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(12), "alice"))

	row, err := conn.InsertLoad(context.Background(), "users", Row{"name": "alice"}, "id")
	require.NoError(t, err)
	assert.Equal(t, Row{"id": int64(12), "name": "alice"}, row)
	assert.Equal(t, int64(12), conn.LastID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_OuterConnectionIsNotBound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := WrapDB(db, "mysql")

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectCommit()

	err = conn.Transact(context.Background(), func(tx *Connection) error {
		assert.True(t, tx.InTransaction())
		assert.False(t, conn.InTransaction())

		return conn.Transact(context.Background(), func(other *Connection) error {
			assert.NotEqual(t, tx.TxID(), other.TxID())
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
