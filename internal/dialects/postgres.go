package dialects

import "strconv"

// PostgresDialect implements PostgreSQL-specific SQL dialect.
type PostgresDialect struct {
	StandardDialect
}

func init() {
	RegisterDialect("postgres", &PostgresDialect{})
	RegisterDialect("postgresql", &PostgresDialect{})
	RegisterDialect("pgsql", &PostgresDialect{})
}

// Name returns "postgres".
func (d *PostgresDialect) Name() string { return "postgres" }

// VersionQuery returns "SHOW server_version".
func (d *PostgresDialect) VersionQuery() string { return "SHOW server_version" }

// Placeholder returns PostgreSQL placeholder format ($1, $2, etc.).
func (d *PostgresDialect) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}
