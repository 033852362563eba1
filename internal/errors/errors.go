// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for the query engine.
// It provides a structured approach to error handling with machine-readable
// error kinds and human-friendly messages, so callers can distinguish a dead
// connection from a rejected statement without parsing backend diagnostics.
//
// The package supports wrapping underlying errors while maintaining error
// kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConnectionError indicates a backend session could not be opened or repaired.
	ConnectionError Kind = "connection_error"
	// BackendError indicates the backend rejected an executed statement.
	BackendError Kind = "backend_error"
	// NotFound indicates a requested row/column pair is absent from a result.
	NotFound Kind = "not_found"
	// UnknownConnection indicates a submit against an unregistered connection name.
	UnknownConnection Kind = "unknown_connection"
	// ConnectionClosing is the synthetic kind delivered during connection teardown.
	ConnectionClosing Kind = "connection_closing"
	// SecurityAnomaly indicates a consumer-level policy violation, such as an
	// authentication query matching more than one row.
	SecurityAnomaly Kind = "security_anomaly"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of err, or the empty Kind when err is nil or
// carries no category.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }
