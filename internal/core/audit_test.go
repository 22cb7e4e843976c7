package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Audit columns are VARCHAR so sqlite returns the stored strings untouched.
const auditSchema = `CREATE TABLE "notes" (
    "id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    "body" VARCHAR(255) NOT NULL,
    "created_at" VARCHAR(32) NULL,
    "updated_at" VARCHAR(32) NULL,
    "deleted_at" VARCHAR(32) NULL,
    "created_by" VARCHAR(32) NULL,
    "updated_by" VARCHAR(32) NULL,
    "deleted_by" VARCHAR(32) NULL
)`

var auditNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

const auditStamp = "2024-03-15 10:30:00"

func openAudited(t *testing.T, opts ...AuditorOption) (*ListenableConnection, *Auditor) {
	t.Helper()

	conn := NewListenableConnection(openTestConnection(t, WithScripts(auditSchema)), nil)
	a := NewAuditor(append([]AuditorOption{
		WithClock(func() time.Time { return auditNow }),
		WithBlameTo("me"),
	}, opts...)...)
	a.Register(conn.Dispatcher())
	return conn, a
}

func TestAuditor_Defaults(t *testing.T) {
	a := NewAuditor()
	assert.True(t, a.Enabled())
	assert.Equal(t, DefaultAuditColumns(), a.Columns())

	a.SetEnabled(false)
	assert.False(t, a.Enabled())

	fixed := NewAuditor(WithClock(func() time.Time { return auditNow }), WithTimeFormat(time.RFC3339))
	assert.Equal(t, "2024-03-15T10:30:00Z", fixed.Timestamp())
}

func TestAuditor_InsertStamps(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t)

	row, err := conn.InsertLoad(ctx, "notes", Row{"body": "hello"}, "id")
	require.NoError(t, err)

	assert.Equal(t, auditStamp, row["created_at"])
	assert.Equal(t, auditStamp, row["updated_at"])
	assert.Equal(t, "me", row["created_by"])
	assert.Equal(t, "me", row["updated_by"])
	assert.Nil(t, row["deleted_at"])
	assert.Nil(t, row["deleted_by"])
}

func TestAuditor_InsertKeepsGivenValues(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t)

	row, err := conn.InsertLoad(ctx, "notes", Row{
		"body":       "imported",
		"created_at": "2020-01-01 00:00:00",
		"created_by": "importer",
	}, "id")
	require.NoError(t, err)

	assert.Equal(t, "2020-01-01 00:00:00", row["created_at"])
	assert.Nil(t, row["updated_at"])
	assert.Equal(t, "importer", row["created_by"])
}

func TestAuditor_InsertWithoutBlame(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t, WithBlameTo(nil))

	row, err := conn.InsertLoad(ctx, "notes", Row{"body": "anonymous"}, "id")
	require.NoError(t, err)
	assert.Equal(t, auditStamp, row["created_at"])
	assert.Nil(t, row["created_by"])
	assert.Nil(t, row["updated_by"])
}

func TestAuditor_InsertBatch(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t)

	rows, err := conn.InsertBatchLoad(ctx, "notes", []Row{
		{"body": "a", "created_by": "other"},
		{"body": "b", "created_by": "me"},
	}, Criteria{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "other", rows[0]["created_by"])
	assert.Equal(t, "me", rows[1]["created_by"])
	for _, row := range rows {
		assert.Equal(t, auditStamp, row["created_at"])
		assert.Equal(t, auditStamp, row["updated_at"])
		assert.Equal(t, "me", row["updated_by"])
	}
}

func TestAuditor_UpdateStamps(t *testing.T) {
	ctx := context.Background()
	conn, a := openAudited(t)

	a.SetEnabled(false)
	_, err := conn.Insert(ctx, "notes", Row{"body": "draft"})
	require.NoError(t, err)
	a.SetEnabled(true)

	row, err := conn.UpdateLoad(ctx, "notes", Row{"body": "final"}, Where("body = ?", "draft"))
	require.NoError(t, err)
	assert.Equal(t, "final", row["body"])
	assert.Equal(t, auditStamp, row["updated_at"])
	assert.Equal(t, "me", row["updated_by"])
	assert.Nil(t, row["created_at"])
}

func TestAuditor_SoftDelete(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t)

	_, err := conn.InsertBatch(ctx, "notes", []Row{{"body": "keep"}, {"body": "drop"}})
	require.NoError(t, err)

	res, err := conn.Delete(ctx, "notes", Where("body = ?", "drop"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	visible, err := conn.Select(ctx, "notes", Criteria{}, nil)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "keep", visible[0]["body"])

	n, err := conn.Count(ctx, "notes", Criteria{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := conn.SelectWithTrashed(ctx, "notes", Criteria{}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err = conn.Count(WithTrashed(ctx), "notes", Criteria{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stored, err := conn.Connection.SelectOne(ctx, "notes", Where("body = ?", "drop"), nil)
	require.NoError(t, err)
	assert.Equal(t, auditStamp, stored["deleted_at"])
	assert.Equal(t, "me", stored["deleted_by"])
}

func TestAuditor_SoftDeleteLoad(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t)

	_, err := conn.Insert(ctx, "notes", Row{"body": "drop"})
	require.NoError(t, err)

	rows, err := conn.DeleteLoad(ctx, "notes", Where("body = ?", "drop"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, auditStamp, rows[0]["deleted_at"])
	assert.Equal(t, "me", rows[0]["deleted_by"])
}

func TestAuditor_ForceDelete(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t)

	_, err := conn.Insert(ctx, "notes", Row{"body": "gone"})
	require.NoError(t, err)

	res, err := conn.ForceDelete(ctx, "notes", Where("body = ?", "gone"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	n, err := conn.Count(WithTrashed(ctx), "notes", Criteria{}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuditor_Disabled(t *testing.T) {
	ctx := context.Background()
	conn, a := openAudited(t)
	a.SetEnabled(false)

	row, err := conn.InsertLoad(ctx, "notes", Row{"body": "plain"}, "id")
	require.NoError(t, err)
	assert.Nil(t, row["created_at"])
	assert.Nil(t, row["created_by"])

	_, err = conn.Delete(ctx, "notes", Criteria{})
	require.NoError(t, err)

	n, err := conn.Connection.Count(ctx, "notes", Criteria{}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuditor_AliasAndPagination(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t)

	_, err := conn.InsertBatch(ctx, "notes", []Row{{"body": "a"}, {"body": "b"}, {"body": "c"}})
	require.NoError(t, err)
	_, err = conn.Delete(ctx, "notes", Where("body = ?", "b"))
	require.NoError(t, err)

	rows, err := conn.Select(ctx, "notes", Criteria{}, &SelectOptions{Alias: "n", Columns: Cols("body")})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"body": "a"}, {"body": "c"}}, rows)

	p, err := conn.Paginate(ctx, "notes", 1, Criteria{}, &SelectOptions{Limit: 10})
	require.NoError(t, err)
	require.NotNil(t, p.Total)
	assert.Equal(t, int64(2), *p.Total)
	assert.Equal(t, 2, p.Count)
}

func TestAuditor_CustomColumns(t *testing.T) {
	ctx := context.Background()
	conn, _ := openAudited(t, WithAuditColumns(AuditColumns{CreatedAt: "hint"}))

	row, err := conn.InsertLoad(ctx, "demo", Row{"name": "x"}, "id")
	require.NoError(t, err)
	assert.Equal(t, auditStamp, row["hint"])

	// No deleted column: deletes stay real.
	_, err = conn.Delete(ctx, "demo", Criteria{})
	require.NoError(t, err)
	n, err := conn.Connection.Count(ctx, "demo", Criteria{}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBlank(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{"", true},
		{"0", true},
		{"x", false},
		{[]byte{}, true},
		{false, true},
		{true, false},
		{0, true},
		{int64(3), false},
		{0.0, true},
		{time.Time{}, true},
		{auditNow, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, blank(tt.value), "%#v", tt.value)
	}
}
