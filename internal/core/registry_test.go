package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	conn := openTestConnection(t)

	r := NewRegistry().
		Add("user", func(s Session) *Mapper { return newUserMap(s, false).Mapper }).
		AddTable("entries", "demo", WithAutoKey("id"))

	assert.True(t, r.Has("user"))
	assert.True(t, r.Has("entries"))
	assert.False(t, r.Has("demo"))

	user := r.Map(conn, "user")
	assert.Equal(t, "user_map", user.Table())
	assert.Equal(t, []Key{{Column: "username"}}, user.Keys())

	entries := r.Map(conn, "entries")
	assert.Equal(t, "demo", entries.Table())
	assert.Equal(t, []Key{{Column: "id", Auto: true}}, entries.Keys())
	assert.NotSame(t, entries, r.Map(conn, "entries"))

	plain := r.Map(conn, "demo")
	assert.Equal(t, "demo", plain.Table())
	assert.Empty(t, plain.Keys())
}
