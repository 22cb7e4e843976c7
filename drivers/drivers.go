// Package drivers registers every database/sql driver sqlrow supports.
//
// Import it for its side effects:
//
//	import _ "github.com/coregx/sqlrow/drivers"
//
// Registered driver names: mysql, postgres, sqlite3 (cgo) and sqlite (pure Go).
package drivers

import (
	// MySQL and MariaDB.
	_ "github.com/go-sql-driver/mysql"
	// PostgreSQL.
	_ "github.com/lib/pq"
	// SQLite through cgo.
	_ "github.com/mattn/go-sqlite3"
	// SQLite without cgo.
	_ "modernc.org/sqlite"
)
