// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package engine implements the asynchronous SQL dispatch engine: the
// request/result queues, the dispatcher goroutine that drains them, the
// connection objects that execute statements and repair themselves after
// failures, the parameterized-query builder, and the schema reconciliation
// used to keep a table's columns in sync with the data being written.
//
// The engine serves a single-threaded host: the host submits queries and
// later drains finished results into callbacks from its own loop, so
// callback code never runs concurrently with host logic.
package engine

import "strings"

// Query is an immutable description of a SQL statement template plus named
// parameters. Placeholders in the template use the form @name@ and are
// replaced during rendering; an unmatched placeholder is left verbatim.
//
// Queries are value types: SetValue and SetRaw return a new Query, so a
// submitted query can never be mutated behind the engine's back. Equality is
// defined over the template text.
type Query struct {
	text   string
	params map[string]queryParam
}

type queryParam struct {
	value  string
	escape bool
}

// NewQuery returns a query for the given statement template.
func NewQuery(text string) Query {
	return Query{text: text}
}

// Text returns the statement template.
func (q Query) Text() string { return q.text }

// SetValue binds a parameter whose value will be escaped and quoted during
// rendering.
func (q Query) SetValue(name, value string) Query {
	return q.set(name, queryParam{value: value, escape: true})
}

// SetRaw binds a parameter whose value is substituted verbatim. Used for
// numeric values and SQL sentinels such as NULL; never for untrusted input.
func (q Query) SetRaw(name, value string) Query {
	return q.set(name, queryParam{value: value})
}

func (q Query) set(name string, p queryParam) Query {
	params := make(map[string]queryParam, len(q.params)+1)
	for k, v := range q.params {
		params[k] = v
	}
	params[name] = p
	return Query{text: q.text, params: params}
}

// Render produces the final statement text, replacing every @name@
// occurrence (case-sensitive) of each bound parameter with either the raw
// value or the escaped value wrapped in quote delimiters. escapeFn nil falls
// back to quote doubling, the escaping shared by the backends in scope.
func (q Query) Render(escapeFn func(string) string) string {
	if escapeFn == nil {
		escapeFn = fallbackEscape
	}

	out := q.text
	for name, p := range q.params {
		placeholder := "@" + name + "@"
		if p.escape {
			out = strings.ReplaceAll(out, placeholder, "'"+escapeFn(p.value)+"'")
		} else {
			out = strings.ReplaceAll(out, placeholder, p.value)
		}
	}
	return out
}

func fallbackEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
