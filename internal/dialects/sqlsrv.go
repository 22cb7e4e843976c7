package dialects

import "strconv"

// SQLServerDialect implements SQL Server pagination (TOP and OFFSET/FETCH).
type SQLServerDialect struct {
	StandardDialect
}

func init() {
	RegisterDialect("sqlsrv", &SQLServerDialect{})
	RegisterDialect("sqlserver", &SQLServerDialect{})
	RegisterDialect("mssql", &SQLServerDialect{})
}

// Name returns "sqlsrv".
func (d *SQLServerDialect) Name() string { return "sqlsrv" }

// Quotes returns square brackets.
func (d *SQLServerDialect) Quotes() string { return "[]" }

// VersionQuery selects the product version server property.
func (d *SQLServerDialect) VersionQuery() string {
	return "SELECT SERVERPROPERTY('ProductVersion')"
}

// Paginate requires an ORDER BY. A zero offset becomes a leading TOP n.
func (d *SQLServerDialect) Paginate(limit, offset int, ordered bool) (string, bool, error) {
	if !ordered {
		return "", false, ErrOrderRequired
	}
	if offset <= 0 {
		return "TOP " + strconv.Itoa(limit), true, nil
	}
	clause := "OFFSET " + strconv.Itoa(offset) + " ROWS"
	if limit > 0 {
		clause += " FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
	}
	return clause, false, nil
}
