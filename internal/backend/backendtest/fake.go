// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backendtest provides a scripted in-memory backend for engine and
// consumer tests. It records executed statement text, can fail session
// opens, break live sessions, and trap executions mid-flight so tests can
// interleave cancellation with a running statement.
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"querypipe/cli/internal/backend"
	"querypipe/cli/internal/dsn"
)

// Handler produces the row set for one executed statement.
type Handler func(text string) (*backend.Rowset, error)

// Client is a fake backend.Client.
type Client struct {
	mu       sync.Mutex
	handler  Handler
	openErr  error
	opens    int
	sessions []*Session
	executed []string

	trapStarted chan string
	trapGate    chan struct{}
}

// New returns a fake client whose sessions answer every statement with an
// empty row set until a handler is installed.
func New() *Client {
	return &Client{}
}

func (c *Client) Name() string { return "fake" }

// SetHandler installs the statement handler shared by all sessions.
func (c *Client) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// FailOpens makes subsequent Open calls fail with err. Pass nil to restore.
func (c *Client) FailOpens(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// OpenCount reports how many sessions have been opened.
func (c *Client) OpenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Executed returns the statement texts executed so far, in order.
func (c *Client) Executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.executed))
	copy(out, c.executed)
	return out
}

// TrapExecutions blocks every subsequent execution after it has started.
// The returned channel yields the statement text as each execution begins;
// release unblocks all trapped and future executions.
func (c *Client) TrapExecutions() (started <-chan string, release func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trapStarted = make(chan string, 16)
	c.trapGate = make(chan struct{})

	gate := c.trapGate
	return c.trapStarted, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.trapGate == gate {
			close(gate)
			c.trapStarted = nil
			c.trapGate = nil
		}
	}
}

func (c *Client) Open(ctx context.Context, d dsn.Descriptor) (backend.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openErr != nil {
		return nil, c.openErr
	}
	c.opens++
	s := &Session{client: c}
	c.sessions = append(c.sessions, s)
	return s, nil
}

// LastSession returns the most recently opened session, or nil.
func (c *Client) LastSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) == 0 {
		return nil
	}
	return c.sessions[len(c.sessions)-1]
}

// Session is a fake backend.Session handed out by Client.Open.
type Session struct {
	client *Client

	mu     sync.Mutex
	broken bool
	closed bool
}

// Break marks the session unhealthy so the next Ping fails, simulating a
// dropped backend connection.
func (s *Session) Break() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = true
}

func (s *Session) Execute(ctx context.Context, text string) (*backend.Rowset, error) {
	s.mu.Lock()
	if s.closed || s.broken {
		s.mu.Unlock()
		return nil, fmt.Errorf("session is not usable")
	}
	s.mu.Unlock()

	c := s.client
	c.mu.Lock()
	c.executed = append(c.executed, text)
	handler := c.handler
	started := c.trapStarted
	gate := c.trapGate
	c.mu.Unlock()

	if started != nil {
		started <- text
		<-gate
	}

	if handler == nil {
		return &backend.Rowset{}, nil
	}
	return handler(text)
}

func (s *Session) Escape(text string) string {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, text[i])
	}
	return string(out)
}

func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.broken {
		return fmt.Errorf("session is down")
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
