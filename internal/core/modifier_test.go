package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifiableBuilder_RunsInOrder(t *testing.T) {
	mb := NewModifiableBuilder(nil)
	assert.False(t, mb.HasModifier(ActionSelect))

	mb.AddModifier(ActionSelect, func(in Input, b *Builder) (Input, error) {
		in.Criteria = MergeCriteria(in.Criteria, Where("tenant_id = ?", 7))
		return in, nil
	}).AddModifier("SELECT", func(in Input, b *Builder) (Input, error) {
		in.Criteria = MergeCriteria(in.Criteria, Where(b.Column("deleted_at", in.Table)+" IS NULL"))
		return in, nil
	})
	assert.True(t, mb.HasModifier("select"))

	st, err := mb.Select("users", Where("id = ?", 1), nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE id = ? AND (tenant_id = ?) AND ("users"."deleted_at" IS NULL)`, st.SQL)
	assert.Equal(t, []any{1, 7}, st.Values)
}

func TestModifiableBuilder_Writes(t *testing.T) {
	mb := NewModifiableBuilder(NewBuilder(WithTablePrefix("app_")))
	stamp := func(in Input, _ *Builder) (Input, error) {
		data := Row{"version": 2}
		for k, v := range in.Data {
			data[k] = v
		}
		in.Data = data
		return in, nil
	}
	mb.AddModifier(ActionInsert, stamp).AddModifier(ActionUpdate, stamp)
	mb.AddModifier(ActionInsertBatch, func(in Input, _ *Builder) (Input, error) {
		in.Rows = in.Rows[:1]
		return in, nil
	})
	mb.AddModifier(ActionDelete, func(in Input, _ *Builder) (Input, error) {
		in.Table = "archive"
		return in, nil
	})

	st, err := mb.Insert("t", Row{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "app_t" ("a", "version") VALUES (?, ?)`, st.SQL)

	st, err = mb.Update("t", Row{"a": 1}, Where("id = ?", 3))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "app_t" SET "a" = ?, "version" = ? WHERE id = ?`, st.SQL)
	assert.Equal(t, []any{1, 2, 3}, st.Values)

	st, err = mb.InsertBatch("t", []Row{{"a": 1}, {"a": 2}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "app_t" ("a") VALUES (?)`, st.SQL)

	st, err = mb.Delete("t", Criteria{})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "app_archive"`, st.SQL)
}

func TestModifiableBuilder_Error(t *testing.T) {
	boom := errors.New("boom")
	called := false

	mb := NewModifiableBuilder(nil).
		AddModifier(ActionDelete, func(Input, *Builder) (Input, error) { return Input{}, boom }).
		AddModifier(ActionDelete, func(in Input, _ *Builder) (Input, error) {
			called = true
			return in, nil
		})

	_, err := mb.Delete("t", Criteria{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}
