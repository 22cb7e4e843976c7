// Package core implements the statement builder, the connection facade,
// the hook layer and the row mapper behind the sqlrow package.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/coregx/sqlrow/internal/cache"
	"github.com/coregx/sqlrow/internal/config"
	"github.com/coregx/sqlrow/internal/dialects"
	"github.com/coregx/sqlrow/internal/logger"
	"github.com/coregx/sqlrow/internal/metrics"
	"github.com/coregx/sqlrow/internal/tracer"
)

// ExecResult is the outcome of a write statement.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Connection executes builder output on a database/sql handle.
//
// A Connection returned by Transact is bound to that transaction; every
// other Connection runs statements on the pool.
type Connection struct {
	sqlDB      *sql.DB
	tx         *sql.Tx
	txID       string
	driverName string
	dsn        string
	dialect    dialects.Dialect

	builder     SQLBuilder
	builderOpts []BuilderOption
	stmtCache   *cache.StmtCache

	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    tracer.Tracer
	queryHook QueryHook
	metrics   *metrics.Collector

	paginationSize int
	scripts        []string
	lastID         *atomic.Int64

	healthInterval time.Duration
	health         *healthChecker
}

// Option is a functional option for configuring a Connection.
type Option func(*Connection)

// WithLogger sets the statement logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSensitiveFields replaces the column names whose presence masks logged values.
func WithSensitiveFields(fields ...string) Option {
	return func(c *Connection) {
		c.sanitizer = logger.NewSanitizer(fields...)
	}
}

// WithTracer enables tracing of statements and transactions.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Connection) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithQueryHook sets a callback invoked after every statement.
func WithQueryHook(hook QueryHook) Option {
	return func(c *Connection) {
		c.queryHook = hook
	}
}

// WithMetrics records every statement in the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Connection) {
		c.metrics = m
	}
}

// WithBuilder replaces the statement builder, e.g. with a ModifiableBuilder.
func WithBuilder(b SQLBuilder) Option {
	return func(c *Connection) {
		c.builder = b
	}
}

// WithBuilderOptions configures the default builder. The driver option is
// added automatically.
func WithBuilderOptions(opts ...BuilderOption) Option {
	return func(c *Connection) {
		c.builderOpts = append(c.builderOpts, opts...)
	}
}

// WithPaginationSize sets the page size used when no limit is given.
func WithPaginationSize(size int) Option {
	return func(c *Connection) {
		if size > 0 {
			c.paginationSize = size
		}
	}
}

// WithScripts sets statements executed once when the connection opens.
func WithScripts(scripts ...string) Option {
	return func(c *Connection) {
		c.scripts = append(c.scripts, scripts...)
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(c *Connection) {
		c.stmtCache = cache.NewStmtCacheWithCapacity(capacity)
	}
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(c *Connection) {
		c.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(c *Connection) {
		c.sqlDB.SetMaxIdleConns(n)
	}
}

// Open opens the database, verifies it is reachable and runs the init
// scripts. Any failure is wrapped in ErrConnect.
func Open(driverName, dsn string, opts ...Option) (*Connection, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	c := newConnection(sqlDB, driverName, dsn, opts)
	if err := c.init(context.Background()); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// OpenConfig opens a connection described by cfg. opts are applied after
// the options derived from cfg.
func OpenConfig(cfg *config.Config, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	builderOpts := []BuilderOption{
		WithTablePrefix(cfg.TablePrefix),
		WithFormat(cfg.FormatQuery),
	}
	if cfg.Quotes != "" {
		builderOpts = append(builderOpts, WithQuotes(cfg.Quotes))
	}
	if cfg.RawIdentifier != "" {
		builderOpts = append(builderOpts, WithRawIdentifier(cfg.RawIdentifier))
	}

	all := []Option{
		WithBuilderOptions(builderOpts...),
		WithPaginationSize(cfg.PaginationSize),
		WithScripts(cfg.Scripts...),
	}
	if cfg.StmtCacheCapacity > 0 {
		all = append(all, WithStmtCacheCapacity(cfg.StmtCacheCapacity))
	}
	if cfg.HealthCheckInterval > 0 {
		all = append(all, WithHealthCheck(cfg.HealthCheckInterval))
	}
	return Open(cfg.Driver, cfg.DSN, append(all, opts...)...)
}

// WrapDB wraps an existing *sql.DB. The caller keeps ownership of the
// pool settings; init scripts are not run.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) *Connection {
	return newConnection(sqlDB, driverName, "", opts)
}

func newConnection(sqlDB *sql.DB, driverName, dsn string, opts []Option) *Connection {
	c := &Connection{
		sqlDB:          sqlDB,
		driverName:     strings.ToLower(driverName),
		dsn:            dsn,
		dialect:        dialects.GetDialect(driverName),
		stmtCache:      cache.NewStmtCache(),
		logger:         logger.NoopLogger{},
		sanitizer:      logger.NewSanitizer(),
		tracer:         tracer.NoopTracer{},
		paginationSize: config.DefaultPaginationSize,
		lastID:         &atomic.Int64{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.builder == nil {
		c.builder = NewBuilder(append([]BuilderOption{WithDriver(driverName)}, c.builderOpts...)...)
	}
	if c.healthInterval > 0 {
		c.health = newHealthChecker(sqlDB, c.logger, c.driverName, c.healthInterval)
		c.health.start()
	}
	return c
}

func (c *Connection) init(ctx context.Context) error {
	if err := c.sqlDB.PingContext(ctx); err != nil {
		c.logger.Error("database connection failed", "database", c.driverName, "error", err)
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	for _, script := range c.scripts {
		if _, err := c.sqlDB.ExecContext(ctx, script); err != nil {
			c.logger.Error("init script failed", "sql", script, "database", c.driverName, "error", err)
			return fmt.Errorf("%w: %w", ErrConnect, err)
		}
	}
	return nil
}

// Close stops the health checker, clears the statement cache and closes
// the pool.
func (c *Connection) Close() error {
	if c.health != nil {
		c.health.shutdown()
	}
	c.stmtCache.Clear()
	return c.sqlDB.Close()
}

// DB returns the underlying pool.
func (c *Connection) DB() *sql.DB {
	return c.sqlDB
}

// Builder returns the statement builder.
func (c *Connection) Builder() SQLBuilder {
	return c.builder
}

// Driver returns the lower-cased driver name.
func (c *Connection) Driver() string {
	return c.driverName
}

// InTransaction reports whether the connection is bound to a transaction.
func (c *Connection) InTransaction() bool {
	return c.tx != nil
}

// TxID returns the id of the bound transaction, or "".
func (c *Connection) TxID() string {
	return c.txID
}

// LastID returns the last insert id reported by the driver.
func (c *Connection) LastID() int64 {
	return c.lastID.Load()
}

// StmtCacheStats returns the prepared statement cache counters.
func (c *Connection) StmtCacheStats() cache.Stats {
	return c.stmtCache.Stats()
}

var dbNamePattern = regexp.MustCompile(`(?i)(?:^|[\s;?&:])(?:dbname|database)=([^\s;&]+)`)

// Name returns the database name found in the DSN, or "".
func (c *Connection) Name() string {
	return parseDBName(c.driverName, c.dsn)
}

func parseDBName(driverName, dsn string) string {
	if dsn == "" {
		return ""
	}

	switch dialects.GetDialect(driverName).Name() {
	case "mysql":
		if cfg, err := mysql.ParseDSN(dsn); err == nil {
			return cfg.DBName
		}
	case "postgres":
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if kv, err := pq.ParseURL(dsn); err == nil {
				dsn = kv
			}
		}
	}

	if m := dbNamePattern.FindStringSubmatch(dsn); m != nil {
		return strings.Trim(m[1], `'`)
	}
	return ""
}

// Version returns the server version.
func (c *Connection) Version(ctx context.Context) (string, error) {
	var version string
	if err := c.sqlDB.QueryRowContext(ctx, c.dialect.VersionQuery()).Scan(&version); err != nil {
		return "", WrapError(err, "query server version")
	}
	return version, nil
}

// plainBuilder returns the builder without statement modifiers.
func (c *Connection) plainBuilder() SQLBuilder {
	if mb, ok := c.builder.(interface{ plain() SQLBuilder }); ok {
		return mb.plain()
	}
	return c.builder
}

// Exists reports whether table can be queried. Failures are not logged.
func (c *Connection) Exists(ctx context.Context, table string) bool {
	query := "SELECT 1 FROM " + c.builder.Quote(c.builder.Table(table)) + " WHERE 1 = 0"

	var rows *sql.Rows
	var err error
	if c.tx != nil {
		rows, err = c.tx.QueryContext(ctx, query)
	} else {
		rows, err = c.sqlDB.QueryContext(ctx, query)
	}
	if err != nil {
		return false
	}
	_ = rows.Close()
	return true
}

// Stringify replaces each ? in query with the literal form of the matching
// value. Question marks inside single quoted literals are kept. The result
// is meant for logs only.
func (c *Connection) Stringify(query string, values []any) string {
	if len(values) == 0 {
		return query
	}
	return replacePlaceholders(query, func(i int) string {
		if i > len(values) {
			return "?"
		}
		return literal(values[i-1])
	})
}

func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteLiteral(val)
	case []byte:
		return quoteLiteral(string(val))
	case bool:
		return strconv.FormatBool(val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return quoteLiteral(val.Format(DateTimeLayout))
	default:
		return quoteLiteral(fmt.Sprint(val))
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// rebind rewrites ? placeholders for dialects using numbered markers.
func (c *Connection) rebind(query string) string {
	if c.dialect.Placeholder(1) == "?" {
		return query
	}
	return replacePlaceholders(query, c.dialect.Placeholder)
}

// replacePlaceholders replaces the i-th ? (1-based) with marker(i). Question
// marks inside single quoted literals are left alone.
func replacePlaceholders(query string, marker func(i int) string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	index := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			index++
			sb.WriteString(marker(index))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
