// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"querypipe/cli/internal/backend"
	qerrors "querypipe/cli/internal/errors"

	"github.com/samber/lo"
)

// Result is the outcome of one executed query: an ordered row set, an
// optional insert id, and a typed error when execution failed. An empty row
// set is valid and distinct from an error. Results are read-only and safe to
// share.
type Result struct {
	rows      []map[string]string
	insertID  int64
	err       error
	query     Query
	finalText string
}

func newResult(q Query, finalText string, rs *backend.Rowset) *Result {
	r := &Result{query: q, finalText: finalText}
	if rs != nil {
		r.rows = rs.Rows
	}

	// Inserts report their generated id through a RETURNING id clause, so
	// it arrives as an ordinary column in the row set.
	if strings.HasPrefix(q.text, "INSERT") {
		for _, row := range r.rows {
			if v, ok := row["id"]; ok {
				if id, err := strconv.ParseInt(v, 10, 64); err == nil {
					r.insertID = id
				}
				break
			}
		}
	}
	return r
}

func newErrorResult(q Query, finalText string, err error) *Result {
	return &Result{query: q, finalText: finalText, err: err}
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int { return len(r.rows) }

// Get returns the value at (row, column). A missing row or column yields a
// NotFound error; it is a recoverable outcome, not a failure of the query.
func (r *Result) Get(row int, column string) (string, error) {
	if row < 0 || row >= len(r.rows) {
		return "", qerrors.New(qerrors.NotFound, fmt.Sprintf("result has no row %d", row))
	}
	v, ok := r.rows[row][column]
	if !ok {
		return "", qerrors.New(qerrors.NotFound, fmt.Sprintf("row %d has no column %q", row, column))
	}
	return v, nil
}

// Columns returns the sorted union of column names across all rows.
func (r *Result) Columns() []string {
	seen := map[string]struct{}{}
	for _, row := range r.rows {
		for name := range row {
			seen[name] = struct{}{}
		}
	}
	cols := lo.Keys(seen)
	sort.Strings(cols)
	return cols
}

// InsertID returns the generated id of an INSERT, or 0 when none was
// reported.
func (r *Result) InsertID() int64 { return r.insertID }

// Err returns the typed execution error, or nil on success.
func (r *Result) Err() error { return r.err }

// OK reports whether execution succeeded.
func (r *Result) OK() bool { return r.err == nil }

// ErrorText returns the error message, or "" on success.
func (r *Result) ErrorText() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// Query returns the source query.
func (r *Result) Query() Query { return r.query }

// FinalText returns the fully rendered statement text, empty when the query
// never reached rendering.
func (r *Result) FinalText() string { return r.finalText }
