// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"fmt"
	"time"

	"querypipe/cli/internal/dsn"

	"github.com/jackc/pgx/v5"
)

// PostgresClient opens sessions against PostgreSQL using pgx.
type PostgresClient struct{}

// NewPostgresClient returns the PostgreSQL backend client.
func NewPostgresClient() *PostgresClient { return &PostgresClient{} }

func (c *PostgresClient) Name() string { return "postgresql" }

func (c *PostgresClient) Open(ctx context.Context, d dsn.Descriptor) (Session, error) {
	conn, err := pgx.Connect(ctx, d.URI())
	if err != nil {
		return nil, err
	}
	return &pgSession{conn: conn}, nil
}

type pgSession struct {
	conn *pgx.Conn
}

func (s *pgSession) Execute(ctx context.Context, text string) (*Rowset, error) {
	rows, err := s.conn.Query(ctx, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	var rs Rowset
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
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

func (s *pgSession) Escape(text string) string { return quoteEscape(text) }

func (s *pgSession) Ping(ctx context.Context) error {
	if s.conn.IsClosed() {
		return fmt.Errorf("session closed")
	}
	return s.conn.Ping(ctx)
}

func (s *pgSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.conn.Close(ctx)
}

// stringifyValue renders a driver value the way consumers read results:
// text. NULL becomes the empty string, matching libpq's PQgetvalue.
func stringifyValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case []byte:
		return string(tv)
	case time.Time:
		return tv.Format(time.RFC3339)
	case bool:
		if tv {
			return "t"
		}
		return "f"
	default:
		return fmt.Sprintf("%v", tv)
	}
}
