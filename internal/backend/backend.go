// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend defines the narrow client-library boundary the query
// engine runs against, plus adapters for the supported backends. Any SQL
// backend that can open a session, execute statement text, escape string
// literals and close again is pluggable here; everything above this package
// is backend-agnostic.
package backend

import (
	"context"

	"querypipe/cli/internal/dsn"
)

// Client opens sessions against one kind of SQL backend.
type Client interface {
	// Name identifies the backend kind in logs and diagnostics.
	Name() string
	// Open establishes a session from a connection descriptor. It does not
	// retry; callers own the reconnect policy.
	Open(ctx context.Context, d dsn.Descriptor) (Session, error)
}

// Session is one live backend connection. Sessions are not safe for
// concurrent use; the engine serializes access per connection.
type Session interface {
	// Execute runs one statement and returns its row set. DDL and writes
	// return an empty row set unless the statement yields rows (RETURNING).
	Execute(ctx context.Context, text string) (*Rowset, error)
	// Escape neutralizes a string for inclusion inside a quoted SQL
	// literal. It must be safe to call regardless of session health.
	Escape(s string) string
	// Ping reports session health; a non-nil error means the session is
	// unusable and should be reopened.
	Ping(ctx context.Context) error
	// Close releases the session. Safe to call on a broken session.
	Close() error
}

// Rowset is the ordered result of one executed statement. Values are carried
// as text, the way the engine's consumers read them; NULL becomes the empty
// string.
type Rowset struct {
	Rows []map[string]string
}

// quoteEscape doubles single quotes, the escaping scheme shared by the
// backends in scope (standard conforming strings). A value escaped this way
// cannot terminate the quoted literal it is embedded in.
func quoteEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
