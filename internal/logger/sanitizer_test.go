package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_Mask(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name   string
		sql    string
		values []any
		want   []any
	}{
		{
			name:   "harmless statement",
			sql:    `SELECT * FROM "users" WHERE id = ?`,
			values: []any{1},
			want:   []any{1},
		},
		{
			name:   "sensitive column",
			sql:    `INSERT INTO "users" ("name", "password") VALUES (?, ?)`,
			values: []any{"alice", "hunter2"},
			want:   []any{maskValue, maskValue},
		},
		{
			name:   "case insensitive",
			sql:    `UPDATE users SET API_KEY = ?`,
			values: []any{"abc"},
			want:   []any{maskValue},
		},
		{
			name:   "word boundary",
			sql:    `SELECT * FROM authors WHERE id = ?`,
			values: []any{7},
			want:   []any{7},
		},
		{
			name:   "no values",
			sql:    `SELECT password FROM users`,
			values: nil,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Mask(tt.sql, tt.values))
		})
	}
}

func TestSanitizer_MaskKeepsInput(t *testing.T) {
	s := NewSanitizer("pin")
	values := []any{"1234"}

	masked := s.Mask("UPDATE cards SET pin = ?", values)

	assert.Equal(t, maskValue, masked[0])
	assert.Equal(t, "1234", values[0])
}

func TestSanitizer_Format(t *testing.T) {
	s := NewSanitizer()

	assert.Equal(t, "[]", s.Format(nil))
	assert.Equal(t, "[1, foo, NULL, bar]", s.Format([]any{1, "foo", nil, []byte("bar")}))

	long := strings.Repeat("x", 150)
	assert.Equal(t, "["+strings.Repeat("x", 100)+"...]", s.Format([]any{long}))

	assert.Equal(t, "["+maskValue+"]", s.MaskAndFormat("SELECT * FROM t WHERE token = ?", []any{"t"}))
}
