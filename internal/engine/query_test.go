// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryRender(t *testing.T) {
	esc := func(s string) string { return s } // identity, quoting is the query's job

	t.Run("escaped value is quoted", func(t *testing.T) {
		q := NewQuery("SELECT * FROM t WHERE id=@id@").SetValue("id", "5")
		assert.Equal(t, "SELECT * FROM t WHERE id='5'", q.Render(esc))
	})

	t.Run("raw value is substituted verbatim", func(t *testing.T) {
		q := NewQuery("UPDATE t SET a=@a@").SetRaw("a", "NULL")
		assert.Equal(t, "UPDATE t SET a=NULL", q.Render(esc))
	})

	t.Run("unmatched placeholder stays verbatim", func(t *testing.T) {
		q := NewQuery("SELECT @missing@ FROM t").SetValue("other", "x")
		assert.Equal(t, "SELECT @missing@ FROM t", q.Render(esc))
	})

	t.Run("placeholders are case-sensitive", func(t *testing.T) {
		q := NewQuery("SELECT @Name@ FROM t").SetValue("name", "bob")
		assert.Equal(t, "SELECT @Name@ FROM t", q.Render(esc))
	})

	t.Run("every occurrence is replaced", func(t *testing.T) {
		q := NewQuery("SELECT * FROM t WHERE a=@v@ OR b=@v@").SetValue("v", "x")
		assert.Equal(t, "SELECT * FROM t WHERE a='x' OR b='x'", q.Render(esc))
	})

	t.Run("nil escape falls back to quote doubling", func(t *testing.T) {
		q := NewQuery("SELECT * FROM t WHERE name=@n@").SetValue("n", "o'brien")
		assert.Equal(t, "SELECT * FROM t WHERE name='o''brien'", q.Render(nil))
	})
}

func TestQueryImmutability(t *testing.T) {
	base := NewQuery("SELECT @a@")
	with := base.SetValue("a", "1")

	assert.Equal(t, "SELECT @a@", base.Render(nil), "SetValue must not mutate the receiver")
	assert.Equal(t, "SELECT '1'", with.Render(nil))
}

func TestEscapeNotAppliedTwice(t *testing.T) {
	// The escape function runs exactly once per rendered value; escaping an
	// already-escaped string changes it, so double application would corrupt
	// data.
	doubling := func(s string) string { return fallbackEscape(s) }

	once := doubling("it's")
	assert.Equal(t, "it''s", once)
	assert.NotEqual(t, once, doubling(once))

	q := NewQuery("v=@v@").SetValue("v", "it's")
	assert.Equal(t, "v='it''s'", q.Render(doubling))
}
