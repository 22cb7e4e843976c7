package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelper_Quote(t *testing.T) {
	tests := []struct {
		name   string
		quotes string
		expr   string
		want   string
	}{
		{"default", "", "name", `"name"`},
		{"qualified", "", "t.name", `"t"."name"`},
		{"backtick", "`", "t.name", "`t`.`name`"},
		{"brackets", "[]", "dbo.users", "[dbo].[users]"},
		{"empty segment", "", "t.", `"t".`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHelper(tt.quotes, "", "")
			assert.Equal(t, tt.want, h.Quote(tt.expr))
		})
	}
}

func TestHelper_IsRaw(t *testing.T) {
	h := Helper{}

	raw, rest := h.IsRaw(`"COUNT(*)`)
	assert.True(t, raw)
	assert.Equal(t, "COUNT(*)", rest)

	raw, rest = h.IsRaw("name")
	assert.False(t, raw)
	assert.Equal(t, "name", rest)

	custom := NewHelper("", "!", "")
	raw, rest = custom.IsRaw("!NOW()")
	assert.True(t, raw)
	assert.Equal(t, "NOW()", rest)
	assert.Equal(t, "!NOW()", custom.Raw("NOW()"))
}

func TestHelper_Table(t *testing.T) {
	h := NewHelper("", "", "app_")

	assert.Equal(t, "app_users", h.Table("users"))
	assert.Equal(t, "users", h.Table(h.Raw("users")))
	assert.Equal(t, "app_", h.TablePrefix())
}

func TestHelper_Column(t *testing.T) {
	h := Helper{}

	assert.Equal(t, `"t"."name"`, h.Column("name", "t"))
	assert.Equal(t, `"u"."name"`, h.Column("u.name", "t"))
	assert.Equal(t, `"name"`, h.Column("name", ""))
	assert.Equal(t, "LOWER(name)", h.Column(h.Raw("LOWER(name)"), "t"))
}
