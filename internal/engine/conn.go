// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"sync"

	"querypipe/cli/internal/backend"
	"querypipe/cli/internal/dsn"
	qerrors "querypipe/cli/internal/errors"

	slogctx "github.com/veqryn/slog-context"
)

// Conn owns one live backend session and executes one query at a time to
// completion. A lost session self-heals lazily: the next execute attempt
// reconnects instead of a background health checker.
//
// The exec mutex serializes execution and doubles as the teardown barrier:
// the registry acquires it before closing the session, so a connection is
// never destroyed while a query against it is in flight.
type Conn struct {
	name   string
	desc   dsn.Descriptor
	client backend.Client
	schema *schemaCache

	// execMu guards session, closed and lastConnErr and is held for the
	// whole of every execute call.
	execMu      sync.Mutex
	session     backend.Session
	closed      bool
	lastConnErr error
}

func newConn(client backend.Client, desc dsn.Descriptor) *Conn {
	return &Conn{
		name:   desc.Name,
		desc:   desc,
		client: client,
		schema: newSchemaCache(),
	}
}

// Name returns the logical connection name.
func (c *Conn) Name() string { return c.name }

// connect opens a fresh session, replacing any previous one.
func (c *Conn) connect(ctx context.Context) error {
	c.execMu.Lock()
	defer c.execMu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Conn) connectLocked(ctx context.Context) error {
	// A torn-down conn must not lazily reopen a session: the registry has
	// already deregistered it, so nothing would ever close the new session.
	if c.closed {
		err := qerrors.New(qerrors.ConnectionClosing, c.name+" is closed")
		c.lastConnErr = err
		return err
	}

	if c.session != nil {
		c.session.Close()
		c.session = nil
	}

	sess, err := c.client.Open(ctx, c.desc)
	if err != nil {
		c.lastConnErr = err
		return qerrors.Wrap(qerrors.ConnectionError, "unable to connect to "+c.name, err)
	}

	c.session = sess
	c.lastConnErr = nil
	slogctx.FromCtx(ctx).Debug("connected to backend",
		"connection", c.name,
		"backend", c.client.Name(),
		"target", c.desc.Redacted(),
	)
	return nil
}

// ensureConnectedLocked reconnects when there is no session or the session
// is unhealthy. The connect error is swallowed into the boolean; the cause
// stays in lastConnErr for the error result.
func (c *Conn) ensureConnectedLocked(ctx context.Context) bool {
	if c.session != nil && c.session.Ping(ctx) == nil {
		return true
	}
	return c.connectLocked(ctx) == nil
}

// execute renders and runs one query, classifying the outcome into a
// Result. It never fails the caller: connection and backend errors surface
// as error-bearing Results. This is the single point of backend interaction;
// the exec mutex makes it safe even if two goroutines ever raced here.
func (c *Conn) execute(ctx context.Context, q Query) *Result {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	if !c.ensureConnectedLocked(ctx) {
		final := q.Render(nil)
		return newErrorResult(q, final,
			qerrors.Wrap(qerrors.ConnectionError, "no backend session for "+c.name, c.lastConnErr))
	}

	final := q.Render(c.session.Escape)
	rs, err := c.session.Execute(ctx, final)
	if err != nil {
		return newErrorResult(q, final, qerrors.Wrap(qerrors.BackendError, "query failed on "+c.name, err))
	}
	return newResult(q, final, rs)
}

// close waits out any in-flight execution and releases the session. A
// dispatcher that peeked a request against this conn before teardown gets an
// error result instead of a fresh session; the post-execution re-check then
// discards it.
func (c *Conn) close() error {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	c.closed = true
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
