package sqlrow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/coregx/sqlrow"
)

const postsSchema = `CREATE TABLE "posts" (
    "id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    "title" VARCHAR(128) NOT NULL,
    "tags" VARCHAR(255) NULL,
    "created_at" VARCHAR(32) NULL,
    "updated_at" VARCHAR(32) NULL,
    "deleted_at" VARCHAR(32) NULL
)`

func openPosts(t *testing.T) *sqlrow.Connection {
	t.Helper()

	conn, err := sqlrow.Open("sqlite", ":memory:",
		sqlrow.WithMaxOpenConns(1),
		sqlrow.WithScripts(postsSchema),
		sqlrow.WithPaginationSize(2),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPublicAPI_AuditedMapper(t *testing.T) {
	ctx := context.Background()
	conn := sqlrow.NewListenableConnection(openPosts(t), nil)

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sqlrow.NewAuditor(
		sqlrow.WithAuditColumns(sqlrow.AuditColumns{CreatedAt: "created_at", UpdatedAt: "updated_at", DeletedAt: "deleted_at"}),
		sqlrow.WithClock(func() time.Time { return now }),
	).Register(conn.Dispatcher())

	registry := sqlrow.NewRegistry().AddTable("post", "posts",
		sqlrow.WithAutoKey("id"),
		sqlrow.WithCasts(map[string]string{"tags": sqlrow.CastArray}),
	)
	posts := registry.Map(conn, "post")

	for i := 1; i <= 3; i++ {
		posts.Reset()
		require.NoError(t, posts.Set("title", fmt.Sprintf("post %d", i)))
		require.NoError(t, posts.Set("tags", []any{"go", i}))
		saved, err := posts.Save(ctx)
		require.NoError(t, err)
		require.True(t, saved)
	}

	tags, err := posts.Get("tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"go", int64(3)}, tags)
	created, err := posts.Get("created_at")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02 03:04:05", created)

	_, err = posts.Delete(ctx, sqlrow.Where("title = ?", "post 2"))
	require.NoError(t, err)

	page, err := posts.Paginate(ctx, 1, sqlrow.Criteria{}, &sqlrow.SelectOptions{Orders: sqlrow.Asc("id")})
	require.NoError(t, err)
	require.NotNil(t, page.Total)
	assert.Equal(t, int64(2), *page.Total)
	assert.Equal(t, 1, page.LastPage)
	assert.Equal(t, "post 3", page.Subset[1]["title"])

	trashed, err := conn.SelectWithTrashed(ctx, "posts", sqlrow.Where("deleted_at IS NOT NULL"), nil)
	require.NoError(t, err)
	require.Len(t, trashed, 1)

	type post struct {
		ID    int64 `db:"id"`
		Title string
	}
	var decoded []post
	rows, err := conn.Select(ctx, "posts", sqlrow.Criteria{}, &sqlrow.SelectOptions{Orders: sqlrow.Desc("id")})
	require.NoError(t, err)
	require.NoError(t, sqlrow.DecodeRows(rows, &decoded))
	assert.Equal(t, []post{{ID: 3, Title: "post 3"}, {ID: 1, Title: "post 1"}}, decoded)
}

func TestPublicAPI_Builder(t *testing.T) {
	b := sqlrow.NewBuilder(sqlrow.WithDriver("mysql"), sqlrow.WithTablePrefix("app_"))

	st, err := b.Select("users", sqlrow.Where("status = ?", "active"), &sqlrow.SelectOptions{
		Columns: sqlrow.Cols("id", "name"),
		Orders:  sqlrow.Desc("id"),
		Limit:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT `app_users`.`id`, `app_users`.`name` FROM `app_users` WHERE status = ? ORDER BY `app_users`.`id` DESC LIMIT 5", st.SQL)
	assert.Equal(t, []any{"active"}, st.Values)

	_, err = b.InsertBatch("users", nil)
	assert.ErrorIs(t, err, sqlrow.ErrNoInsertData)
}
