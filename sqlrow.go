// Package sqlrow is a small SQL toolkit over database/sql that works with
// rows as maps. It builds dialect aware SELECT, INSERT, UPDATE and DELETE
// statements, runs them through a Connection with statement caching,
// logging and tracing, and layers hooks, audit columns and an active record
// Mapper on top.
//
// Example:
//
//	conn, err := sqlrow.Open("sqlite", "app.db")
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	rows, err := conn.Select(ctx, "users", sqlrow.Where("status = ?", "active"),
//	    &sqlrow.SelectOptions{Orders: sqlrow.Desc("id"), Limit: 10})
package sqlrow

import (
	"github.com/coregx/sqlrow/internal/config"
	"github.com/coregx/sqlrow/internal/core"
	"github.com/coregx/sqlrow/internal/logger"
	"github.com/coregx/sqlrow/internal/metrics"
	"github.com/coregx/sqlrow/internal/tracer"
)

type (
	// Row is one table row keyed by column name.
	Row = core.Row
	// Criteria is a WHERE or HAVING fragment with its bound values.
	Criteria = core.Criteria
	// Statement is generated SQL with its bound values.
	Statement = core.Statement
	// ExecResult reports affected rows and the last insert id.
	ExecResult = core.ExecResult
	// Page is one page of a paginated select.
	Page = core.Page
	// Params holds named query parameters.
	Params = core.Params

	// SelectOptions controls columns, joins, grouping, ordering and limits.
	SelectOptions = core.SelectOptions
	// Column is one select column entry.
	Column = core.Column
	// Columns is an ordered select column list.
	Columns = core.Columns
	// Order is one ORDER BY entry.
	Order = core.Order
	// Orders is an ordered ORDER BY list.
	Orders = core.Orders

	// Helper quotes identifiers and resolves table names.
	Helper = core.Helper
	// SQLBuilder generates statements.
	SQLBuilder = core.SQLBuilder
	// Builder generates statements for one dialect.
	Builder = core.Builder
	// BuilderOption configures a Builder.
	BuilderOption = core.BuilderOption
	// ModifiableBuilder runs modifier chains before generating statements.
	ModifiableBuilder = core.ModifiableBuilder
	// Modifier rewrites the input of a builder call.
	Modifier = core.Modifier
	// Input holds the arguments of one builder call.
	Input = core.Input

	// Connection executes statements against a database.
	Connection = core.Connection
	// Option configures a Connection.
	Option = core.Option
	// Session is the set of data operations shared by Connection and
	// ListenableConnection.
	Session = core.Session
	// QueryEvent describes one executed statement.
	QueryEvent = core.QueryEvent
	// QueryHook observes every executed statement.
	QueryHook = core.QueryHook

	// ListenableConnection runs hooks around data operations.
	ListenableConnection = core.ListenableConnection
	// Dispatcher holds before and after hooks.
	Dispatcher = core.Dispatcher
	// Operation names a hookable operation.
	Operation = core.Operation
	// Event is the payload handed to hooks.
	Event = core.Event
	// Result is what an operation produced.
	Result = core.Result
	// Outcome is the verdict of a before hook.
	Outcome = core.Outcome
	// BeforeHook runs before an operation.
	BeforeHook = core.BeforeHook
	// AfterHook runs after an operation.
	AfterHook = core.AfterHook
	// HookID identifies a hook registration.
	HookID = core.HookID

	// Auditor stamps audit columns and soft deletes rows.
	Auditor = core.Auditor
	// AuditorOption configures an Auditor.
	AuditorOption = core.AuditorOption
	// AuditColumns names the audit columns.
	AuditColumns = core.AuditColumns

	// Mapper is an active record cursor over one table.
	Mapper = core.Mapper
	// MapperOption configures a Mapper.
	MapperOption = core.MapperOption
	// Key is a mapper key column.
	Key = core.Key
	// Accessor is a computed mapper property.
	Accessor = core.Accessor
	// TableNamer is implemented by types that name their own table.
	TableNamer = core.TableNamer
	// Registry maps names to mapper factories.
	Registry = core.Registry
	// Factory builds a mapper over a session.
	Factory = core.Factory

	// RowMismatchError reports an InsertBatch row whose columns differ.
	RowMismatchError = core.RowMismatchError
	// ColumnError names the column of a mapper access error.
	ColumnError = core.ColumnError

	// Config describes one database connection loaded from YAML.
	Config = config.Config
	// Logger is the structured logger a Connection writes to.
	Logger = logger.Logger
	// Tracer starts spans around statements and transactions.
	Tracer = tracer.Tracer
	// MetricsCollector records statement latency and errors in Prometheus.
	MetricsCollector = metrics.Collector
	// MetricsOptions names the exported Prometheus series.
	MetricsOptions = metrics.Options
)

// Hookable operations.
const (
	OpSelect      = core.OpSelect
	OpCount       = core.OpCount
	OpPaginate    = core.OpPaginate
	OpInsert      = core.OpInsert
	OpUpdate      = core.OpUpdate
	OpDelete      = core.OpDelete
	OpInsertBatch = core.OpInsertBatch
)

// Builder actions modifiers attach to.
const (
	ActionSelect      = core.ActionSelect
	ActionInsert      = core.ActionInsert
	ActionUpdate      = core.ActionUpdate
	ActionDelete      = core.ActionDelete
	ActionInsertBatch = core.ActionInsertBatch
)

// Mapper cast kinds.
const (
	CastArray    = core.CastArray
	CastJSON     = core.CastJSON
	CastMsgpack  = core.CastMsgpack
	CastInt      = core.CastInt
	CastFloat    = core.CastFloat
	CastBool     = core.CastBool
	CastString   = core.CastString
	CastDate     = core.CastDate
	CastDateTime = core.CastDateTime

	DateLayout     = core.DateLayout
	DateTimeLayout = core.DateTimeLayout

	DefaultRawIdentifier = core.DefaultRawIdentifier
)

// Errors.
var (
	ErrSubQueryAlias    = core.ErrSubQueryAlias
	ErrOrderRequired    = core.ErrOrderRequired
	ErrNoInsertData     = core.ErrNoInsertData
	ErrInvalidRow       = core.ErrInvalidRow
	ErrNoData           = core.ErrNoData
	ErrEmptyData        = core.ErrEmptyData
	ErrConnect          = core.ErrConnect
	ErrReadOnly         = core.ErrReadOnly
	ErrNoKeys           = core.ErrNoKeys
	ErrInsufficientKeys = core.ErrInsufficientKeys
	ErrNothingToSave    = core.ErrNothingToSave
	ErrColumnForbidden  = core.ErrColumnForbidden
	ErrColumnNotExists  = core.ErrColumnNotExists
	ErrMissingParam     = core.ErrMissingParam
	ErrDecodeTarget     = core.ErrDecodeTarget
)

// Connections.
var (
	Open       = core.Open
	OpenConfig = core.OpenConfig
	WrapDB     = core.WrapDB

	WithLogger            = core.WithLogger
	WithSensitiveFields   = core.WithSensitiveFields
	WithTracer            = core.WithTracer
	WithQueryHook         = core.WithQueryHook
	WithMetrics           = core.WithMetrics
	WithBuilder           = core.WithBuilder
	WithBuilderOptions    = core.WithBuilderOptions
	WithPaginationSize    = core.WithPaginationSize
	WithScripts           = core.WithScripts
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithHealthCheck       = core.WithHealthCheck

	LoadConfig          = config.Load
	ParseConfig         = config.Parse
	NewSlogLogger       = logger.NewSlogAdapter
	NewOtelTracer       = tracer.NewOtelTracer
	NewMetricsCollector = metrics.NewCollector
)

// Builders and criteria.
var (
	NewHelper            = core.NewHelper
	NewBuilder           = core.NewBuilder
	NewModifiableBuilder = core.NewModifiableBuilder
	WithDriver           = core.WithDriver
	WithTablePrefix      = core.WithTablePrefix
	WithQuotes           = core.WithQuotes
	WithRawIdentifier    = core.WithRawIdentifier
	WithFormat           = core.WithFormat

	Where         = core.Where
	JoinCriteria  = core.JoinCriteria
	MergeCriteria = core.MergeCriteria
	ExpandNamed   = core.ExpandNamed
	Cols          = core.Cols
	By            = core.By
	Asc           = core.Asc
	Desc          = core.Desc
)

// Hooks and auditing.
var (
	NewListenableConnection = core.NewListenableConnection
	NewDispatcher           = core.NewDispatcher
	Continue                = core.Continue
	ShortCircuit            = core.ShortCircuit
	Abort                   = core.Abort
	WithTrashed             = core.WithTrashed

	NewAuditor          = core.NewAuditor
	DefaultAuditColumns = core.DefaultAuditColumns
	WithAuditColumns    = core.WithAuditColumns
	WithBlameTo         = core.WithBlameTo
	WithTimeFormat      = core.WithTimeFormat
	WithClock           = core.WithClock
)

// Mappers and rows.
var (
	NewMapper         = core.NewMapper
	NewRegistry       = core.NewRegistry
	TableName         = core.TableName
	WithKeys          = core.WithKeys
	WithAutoKey       = core.WithAutoKey
	WithCasts         = core.WithCasts
	ReadOnly          = core.ReadOnly
	WithColumnsLoad   = core.WithColumnsLoad
	WithColumnsIgnore = core.WithColumnsIgnore
	WithAccessor      = core.WithAccessor

	CastIn     = core.CastIn
	CastOut    = core.CastOut
	DecodeRows = core.DecodeRows
	RowOf      = core.RowOf
	WrapError  = core.WrapError
)
