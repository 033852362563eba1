// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"strings"
	"testing"

	"querypipe/cli/internal/backend"
	"querypipe/cli/internal/backend/backendtest"
	"querypipe/cli/internal/dsn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConn(t *testing.T) (*Conn, *backendtest.Client) {
	t.Helper()
	fake := backendtest.New()
	c := newConn(fake, dsn.Descriptor{Name: "fake/main", Database: "db", User: "u"})
	return c, fake
}

func TestReconcileSchemaCreatesUnknownTable(t *testing.T) {
	c, _ := testConn(t)
	ctx := context.Background()

	queries := c.ReconcileSchema(ctx, "obj", Data{
		"a": {Type: FieldText},
		"b": {Type: FieldInt},
	})

	require.Len(t, queries, 1)
	assert.Equal(t,
		`CREATE TABLE "obj" ("id" BIGINT NOT NULL, "timestamp" TIMESTAMP DEFAULT CURRENT_TIMESTAMP, "a" TEXT, "b" INTEGER, PRIMARY KEY ("id"))`,
		queries[0].Text(),
	)
}

func TestReconcileSchemaConvergence(t *testing.T) {
	c, _ := testConn(t)
	ctx := context.Background()

	first := c.ReconcileSchema(ctx, "obj", Data{"a": {Type: FieldText}, "b": {Type: FieldInt}})
	require.Len(t, first, 1)
	require.True(t, strings.HasPrefix(first[0].Text(), "CREATE TABLE"))

	// a wider write adds exactly one column and leaves a, b untouched
	second := c.ReconcileSchema(ctx, "obj", Data{
		"a": {Type: FieldText},
		"b": {Type: FieldInt},
		"c": {Type: FieldText},
	})
	require.Len(t, second, 1)
	assert.Equal(t, `ALTER TABLE "obj" ADD COLUMN "c" TEXT`, second[0].Text())

	// the cache is updated optimistically; the same batch never re-issues
	third := c.ReconcileSchema(ctx, "obj", Data{"a": {}, "b": {}, "c": {}})
	assert.Empty(t, third)
}

func TestReconcileSchemaFetchesLiveColumns(t *testing.T) {
	c, fake := testConn(t)
	ctx := context.Background()

	fake.SetHandler(func(text string) (*backend.Rowset, error) {
		if strings.Contains(text, "information_schema.columns") {
			return &backend.Rowset{Rows: []map[string]string{
				{"column_name": "id"},
				{"column_name": "timestamp"},
				{"column_name": "a"},
			}}, nil
		}
		return &backend.Rowset{}, nil
	})

	queries := c.ReconcileSchema(ctx, "obj", Data{"a": {Type: FieldText}, "z": {Type: FieldInt}})

	// known table: no CREATE, one ALTER for the genuinely new column
	require.Len(t, queries, 1)
	assert.Equal(t, `ALTER TABLE "obj" ADD COLUMN "z" INTEGER`, queries[0].Text())

	// the metadata query ran exactly once
	var metaCount int
	for _, text := range fake.Executed() {
		if strings.Contains(text, "information_schema.columns") {
			metaCount++
		}
	}
	assert.Equal(t, 1, metaCount)

	// and is not repeated once the cache is warm
	_ = c.ReconcileSchema(ctx, "obj", Data{"a": {}})
	metaCount = 0
	for _, text := range fake.Executed() {
		if strings.Contains(text, "information_schema.columns") {
			metaCount++
		}
	}
	assert.Equal(t, 1, metaCount)
}

func TestBuildUpsertPadsCachedColumns(t *testing.T) {
	c, _ := testConn(t)
	ctx := context.Background()

	_ = c.ReconcileSchema(ctx, "obj", Data{"a": {Type: FieldText}, "b": {Type: FieldText}})

	// a write narrower than history pads the missing column with NULL, so
	// the conflict update nulls it; preserved behavior, not a bug.
	q := c.BuildUpsert("obj", 7, Data{"a": {Value: "x"}})

	assert.Equal(t,
		`INSERT INTO "obj" ("id","a","b") VALUES (7,@a@,@b@) ON CONFLICT ("id") DO UPDATE SET "a" = EXCLUDED."a", "b" = EXCLUDED."b" RETURNING id`,
		q.Text(),
	)
	assert.Equal(t,
		`INSERT INTO "obj" ("id","a","b") VALUES (7,'x',NULL) ON CONFLICT ("id") DO UPDATE SET "a" = EXCLUDED."a", "b" = EXCLUDED."b" RETURNING id`,
		q.Render(nil),
	)
}

func TestBuildUpsertNeverPadsReservedColumns(t *testing.T) {
	c, _ := testConn(t)
	ctx := context.Background()

	_ = c.ReconcileSchema(ctx, "obj", Data{"a": {Type: FieldText}})

	q := c.BuildUpsert("obj", 1, Data{"a": {Value: "x"}})
	text := q.Text()

	assert.Equal(t, 1, strings.Count(text, `"id"`+","), "id appears only in the column list head")
	assert.NotContains(t, text, `"timestamp"`)
}

func TestBuildUpsertEmptyValueBecomesNULL(t *testing.T) {
	c, _ := testConn(t)

	q := c.BuildUpsert("obj", 3, Data{"a": {Value: ""}})
	assert.Contains(t, q.Render(nil), "VALUES (3,NULL)")
}
