package dialects

// MySQLDialect implements MySQL-specific SQL dialect.
type MySQLDialect struct {
	StandardDialect
}

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
}

// Name returns "mysql".
func (d *MySQLDialect) Name() string { return "mysql" }

// Quotes returns the backtick.
func (d *MySQLDialect) Quotes() string { return "`" }
