package cache

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync/atomic"
)

// Mock driver counting closed statements.
type mockDriver struct {
	closed *atomic.Int64
}

type mockConn struct {
	closed *atomic.Int64
}

type mockStmt struct {
	closed *atomic.Int64
}

func (d *mockDriver) Open(_ string) (driver.Conn, error) {
	return &mockConn{closed: d.closed}, nil
}

func (c *mockConn) Prepare(_ string) (driver.Stmt, error) {
	return &mockStmt{closed: c.closed}, nil
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) { return nil, driver.ErrSkip }

func (s *mockStmt) Close() error {
	s.closed.Add(1)
	return nil
}

func (s *mockStmt) NumInput() int { return 0 }

func (s *mockStmt) Exec(_ []driver.Value) (driver.Result, error) { return nil, driver.ErrSkip }

func (s *mockStmt) Query(_ []driver.Value) (driver.Rows, error) { return nil, driver.ErrSkip }

var driverCounter atomic.Uint64

// registerMockDriver registers a fresh mock driver and returns a handle to it
// together with its closed statement counter.
func registerMockDriver() (*sql.DB, *atomic.Int64, error) {
	closed := &atomic.Int64{}
	name := fmt.Sprintf("sqlrow-mock-%d", driverCounter.Add(1))
	sql.Register(name, &mockDriver{closed: closed})

	db, err := sql.Open(name, "")
	return db, closed, err
}
