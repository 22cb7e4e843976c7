package dialects

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct {
	StandardDialect
}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string { return "sqlite" }

// VersionQuery returns "SELECT sqlite_version()".
func (d *SQLiteDialect) VersionQuery() string { return "SELECT sqlite_version()" }
