// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	slogctx "github.com/veqryn/slog-context"
)

// FieldType is the column type hint carried with written data.
type FieldType int

const (
	// FieldText maps to a TEXT column.
	FieldText FieldType = iota
	// FieldInt maps to an INTEGER column.
	FieldInt
)

// Field is one named value in a write, with its column type hint.
type Field struct {
	Value string
	Type  FieldType
}

// Data is the unit of schema reconciliation and upsert building: column name
// to field.
type Data map[string]Field

// Reserved column names synthesized by reconciliation. They are never padded
// and never listed in writes.
const (
	primaryKeyColumn = "id"
	timestampColumn  = "timestamp"
)

// schemaCache maps table names to their known columns for one connection.
// Populated lazily on first write to a table, append-only, never persisted.
// Schema drift introduced by a peer process is not observed until the next
// reconciliation decision point.
type schemaCache struct {
	mu     sync.RWMutex
	tables map[string]map[string]struct{}
}

func newSchemaCache() *schemaCache {
	return &schemaCache{tables: make(map[string]map[string]struct{})}
}

func (sc *schemaCache) columns(table string) []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return lo.Keys(sc.tables[table])
}

func (sc *schemaCache) count(table string) int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.tables[table])
}

func (sc *schemaCache) has(table, column string) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	_, ok := sc.tables[table][column]
	return ok
}

func (sc *schemaCache) add(table string, columns ...string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	set, ok := sc.tables[table]
	if !ok {
		set = make(map[string]struct{})
		sc.tables[table] = set
	}
	for _, col := range columns {
		set[col] = struct{}{}
	}
}

// ReconcileSchema compares data's columns against the cached column set for
// table and returns the statements that close the gap. An unknown table
// yields one CREATE TABLE with all columns plus the synthetic primary key
// and timestamp columns; otherwise one ALTER TABLE ADD COLUMN per column
// missing from the cache. Every column is recorded in the cache before the
// statements run, so a batch issuing several writes does not regenerate
// them.
//
// When the cache is empty the live columns are fetched first with one
// metadata query, executed synchronously on the caller's goroutine.
func (c *Conn) ReconcileSchema(ctx context.Context, table string, data Data) []Query {
	if c.schema.count(table) == 0 {
		logger := slogctx.FromCtx(ctx)
		logger.Debug("fetching columns", "connection", c.name, "table", table)

		q := NewQuery("SELECT column_name FROM information_schema.columns WHERE table_name = @table@ ORDER BY ordinal_position").
			SetValue("table", table)
		res := c.execute(ctx, q)
		for i := 0; i < res.RowCount(); i++ {
			col, err := res.Get(i, "column_name")
			if err != nil {
				continue
			}
			logger.Debug("found column", "table", table, "column", col)
			c.schema.add(table, col)
		}
	}

	names := lo.Keys(data)
	sort.Strings(names)

	if c.schema.count(table) == 0 {
		var b strings.Builder
		b.WriteString("CREATE TABLE ")
		b.WriteString(quoteIdent(table))
		b.WriteString(" (")
		b.WriteString(quoteIdent(primaryKeyColumn))
		b.WriteString(" BIGINT NOT NULL, ")
		b.WriteString(quoteIdent(timestampColumn))
		b.WriteString(" TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
		for _, name := range names {
			c.schema.add(table, name)
			b.WriteString(", ")
			b.WriteString(quoteIdent(name))
			b.WriteString(" ")
			b.WriteString(columnType(data[name].Type))
		}
		b.WriteString(", PRIMARY KEY (")
		b.WriteString(quoteIdent(primaryKeyColumn))
		b.WriteString("))")

		c.schema.add(table, primaryKeyColumn, timestampColumn)
		return []Query{NewQuery(b.String())}
	}

	var queries []Query
	for _, name := range names {
		if c.schema.has(table, name) {
			continue
		}
		c.schema.add(table, name)
		queries = append(queries,
			NewQuery("ALTER TABLE "+quoteIdent(table)+" ADD COLUMN "+quoteIdent(name)+" "+columnType(data[name].Type)))
	}
	return queries
}

// BuildUpsert emits an insert-or-update statement for one row keyed by the
// synthetic primary key. Every cached column absent from data (other than
// the primary key and timestamp) is padded with NULL so a fixed-width row is
// always written; a write narrower than history therefore nulls the columns
// it omits on conflict, which downstream consumers rely on.
func (c *Conn) BuildUpsert(table string, id uint64, data Data) Query {
	padded := make(Data, len(data))
	for k, v := range data {
		padded[k] = v
	}
	for _, col := range c.schema.columns(table) {
		if col == primaryKeyColumn || col == timestampColumn {
			continue
		}
		if _, ok := padded[col]; !ok {
			padded[col] = Field{}
		}
	}

	names := lo.Keys(padded)
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	b.WriteString(quoteIdent(primaryKeyColumn))
	for _, name := range names {
		b.WriteString(",")
		b.WriteString(quoteIdent(name))
	}
	b.WriteString(") VALUES (")
	b.WriteString(strconv.FormatUint(id, 10))
	for _, name := range names {
		b.WriteString(",@")
		b.WriteString(name)
		b.WriteString("@")
	}
	b.WriteString(") ON CONFLICT (")
	b.WriteString(quoteIdent(primaryKeyColumn))
	b.WriteString(") DO UPDATE SET ")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(name))
		b.WriteString(" = EXCLUDED.")
		b.WriteString(quoteIdent(name))
	}
	// The backend reports generated ids only when asked to.
	b.WriteString(" RETURNING id")

	q := NewQuery(b.String())
	for _, name := range names {
		f := padded[name]
		if f.Value == "" {
			q = q.SetRaw(name, "NULL")
		} else {
			q = q.SetValue(name, f.Value)
		}
	}
	return q
}

func columnType(t FieldType) string {
	if t == FieldInt {
		return "INTEGER"
	}
	return "TEXT"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
