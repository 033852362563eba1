// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"database/sql"

	"querypipe/cli/internal/dsn"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient opens sessions against SQLite database files. The descriptor's
// Database field is the file path (or a file: URI such as
// "file:test?mode=memory&cache=shared"); host, port and credentials are
// ignored. It exists to prove the client boundary is pluggable and to back
// hermetic end-to-end tests.
type SQLiteClient struct{}

// NewSQLiteClient returns the SQLite backend client.
func NewSQLiteClient() *SQLiteClient { return &SQLiteClient{} }

func (c *SQLiteClient) Name() string { return "sqlite" }

func (c *SQLiteClient) Open(ctx context.Context, d dsn.Descriptor) (Session, error) {
	db, err := sql.Open("sqlite3", d.Database)
	if err != nil {
		return nil, err
	}
	// One session means one underlying connection; the engine serializes
	// statements on it anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteSession{db: db}, nil
}

type sqliteSession struct {
	db *sql.DB
}

func (s *sqliteSession) Execute(ctx context.Context, text string) (*Rowset, error) {
	rows, err := s.db.QueryContext(ctx, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var rs Rowset
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]string, len(cols))
		for i, col := range cols {
			row[col] = stringifyValue(vals[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (s *sqliteSession) Escape(text string) string { return quoteEscape(text) }

func (s *sqliteSession) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteSession) Close() error { return s.db.Close() }
