// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"testing"

	"querypipe/cli/internal/backend"
	qerrors "querypipe/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultGet(t *testing.T) {
	rs := &backend.Rowset{Rows: []map[string]string{
		{"id": "5", "name": "bob"},
		{"id": "6", "name": "alice"},
	}}
	res := newResult(NewQuery("SELECT * FROM t"), "SELECT * FROM t", rs)

	require.True(t, res.OK())
	assert.Equal(t, 2, res.RowCount())

	v, err := res.Get(0, "name")
	require.NoError(t, err)
	assert.Equal(t, "bob", v)

	_, err = res.Get(2, "name")
	assert.True(t, qerrors.Is(err, qerrors.NotFound))

	_, err = res.Get(0, "email")
	assert.True(t, qerrors.Is(err, qerrors.NotFound))

	_, err = res.Get(-1, "name")
	assert.True(t, qerrors.Is(err, qerrors.NotFound))
}

func TestResultInsertID(t *testing.T) {
	rs := &backend.Rowset{Rows: []map[string]string{{"id": "41"}}}

	ins := newResult(NewQuery(`INSERT INTO "t" ("a") VALUES ('x') RETURNING id`), "", rs)
	assert.Equal(t, int64(41), ins.InsertID())

	// only INSERT statements sniff the id column
	sel := newResult(NewQuery(`SELECT id FROM t`), "", rs)
	assert.Equal(t, int64(0), sel.InsertID())
}

func TestResultEmptyRowsIsNotError(t *testing.T) {
	res := newResult(NewQuery("SELECT 1 WHERE false"), "", &backend.Rowset{})
	assert.True(t, res.OK())
	assert.Equal(t, 0, res.RowCount())
	assert.Empty(t, res.ErrorText())
}

func TestResultError(t *testing.T) {
	q := NewQuery("SELECT broken")
	res := newErrorResult(q, "SELECT broken", qerrors.New(qerrors.BackendError, "syntax error"))

	assert.False(t, res.OK())
	assert.True(t, qerrors.Is(res.Err(), qerrors.BackendError))
	assert.Contains(t, res.ErrorText(), "syntax error")
	assert.Equal(t, q.Text(), res.Query().Text())
}
