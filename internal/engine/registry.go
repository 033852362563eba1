// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"fmt"
	"sync"

	"querypipe/cli/internal/backend"
	"querypipe/cli/internal/dsn"
	qerrors "querypipe/cli/internal/errors"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	slogctx "github.com/veqryn/slog-context"
)

// Registry is the host-facing entry point of the engine. It owns the set of
// active connections keyed by logical name, the pending and finished queues,
// and the dispatcher goroutine that links them.
//
// Two goroutines touch a registry: the host (submit, cancel, drain,
// reconcile, close) and the single dispatcher. All connections share that
// one dispatcher, so queries against different connections are serialized
// relative to each other, trading throughput for bounded resource use.
type Registry struct {
	client backend.Client

	// mu guards conns, pending and finished. It is held only for queue and
	// map mutation, never across a statement execution or a callback.
	mu       sync.Mutex
	conns    map[string]*Conn
	pending  []*pendingRequest
	finished []*finishedRequest

	wake   chan struct{}
	notify chan struct{}
	done   chan struct{}

	closeOnce sync.Once
	started   bool
	wg        sync.WaitGroup
}

// NewRegistry creates a registry whose connections run on the given backend.
func NewRegistry(client backend.Client) *Registry {
	return &Registry{
		client: client,
		conns:  make(map[string]*Conn),
		wake:   make(chan struct{}, 1),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine. Calling it twice is a no-op.
func (r *Registry) Start(ctx context.Context) {
	if r.started {
		return
	}
	r.started = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.dispatch(slogctx.With(ctx, "module", "dispatcher"))
	}()
}

// Notify returns the drain signal: it becomes readable when the dispatcher
// has gone idle with undelivered results in the finished queue. Hosts select
// on it and call Drain from their own loop.
func (r *Registry) Notify() <-chan struct{} { return r.notify }

// Submit enqueues a query against the named connection. It fails
// synchronously with UnknownConnection when no such connection is
// registered; every other failure is delivered through the callback.
func (r *Registry) Submit(connName string, q Query, cb Callback) error {
	r.mu.Lock()
	c, ok := r.conns[connName]
	if !ok {
		r.mu.Unlock()
		return qerrors.New(qerrors.UnknownConnection, fmt.Sprintf("no connection named %q", connName))
	}
	r.pending = append(r.pending, &pendingRequest{
		id:       uuid.New(),
		conn:     c,
		callback: cb,
		query:    q,
	})
	r.mu.Unlock()

	signal(r.wake)
	return nil
}

// Drain swaps the finished queue for an empty one and invokes each callback
// with its result, in completion order, outside the lock. It must be called
// from the host's goroutine only; this is the single place callbacks run.
func (r *Registry) Drain() {
	r.mu.Lock()
	batch := r.finished
	r.finished = nil
	r.mu.Unlock()

	for _, f := range batch {
		if f.callback == nil {
			panic("engine: finished request with nil callback reached Drain")
		}
		if f.result.Err() != nil {
			f.callback.OnError(f.result)
		} else {
			f.callback.OnResult(f.result)
		}
	}
}

// Cancel removes every request whose callback matches pred, both pending
// ones not yet executed and finished ones not yet drained; no callback is
// invoked for a cancelled request. A request already mid-flight in the
// dispatcher is not aborted; its result is discarded by the dispatcher's
// post-execution re-check instead.
func (r *Registry) Cancel(pred func(Callback) bool) {
	r.mu.Lock()
	kept := r.pending[:0]
	for _, req := range r.pending {
		if req.callback != nil && pred(req.callback) {
			continue
		}
		kept = append(kept, req)
	}
	for i := len(kept); i < len(r.pending); i++ {
		r.pending[i] = nil
	}
	r.pending = kept

	keptFinished := r.finished[:0]
	for _, f := range r.finished {
		if pred(f.callback) {
			continue
		}
		keptFinished = append(keptFinished, f)
	}
	for i := len(keptFinished); i < len(r.finished); i++ {
		r.finished[i] = nil
	}
	r.finished = keptFinished
	r.mu.Unlock()

	signal(r.wake)
}

// Connection returns the named connection for synchronous schema work.
func (r *Registry) Connection(name string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[name]
	return c, ok
}

// Names returns the registered connection names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.conns)
}

// RemoveConnection tears down the named connection: pending requests bound
// to it and results not yet drained receive a synthetic ConnectionClosing
// error inline, any in-flight execution is waited out, then the session is
// closed and the connection deregistered.
func (r *Registry) RemoveConnection(ctx context.Context, name string) error {
	r.mu.Lock()
	c, ok := r.conns[name]
	if !ok {
		r.mu.Unlock()
		return qerrors.New(qerrors.UnknownConnection, fmt.Sprintf("no connection named %q", name))
	}
	delete(r.conns, name)

	var victims []*pendingRequest
	keptPending := r.pending[:0]
	for _, req := range r.pending {
		if req.conn == c {
			if req.callback != nil {
				victims = append(victims, req)
			}
			continue
		}
		keptPending = append(keptPending, req)
	}
	for i := len(keptPending); i < len(r.pending); i++ {
		r.pending[i] = nil
	}
	r.pending = keptPending

	var undrained []*finishedRequest
	keptFinished := r.finished[:0]
	for _, f := range r.finished {
		if f.conn == c {
			undrained = append(undrained, f)
			continue
		}
		keptFinished = append(keptFinished, f)
	}
	r.finished = keptFinished
	r.mu.Unlock()

	closing := func(q Query) *Result {
		return newErrorResult(q, "", qerrors.New(qerrors.ConnectionClosing, name+" is going away"))
	}
	for _, req := range victims {
		req.callback.OnError(closing(req.query))
	}
	for _, f := range undrained {
		f.callback.OnError(closing(f.result.Query()))
	}

	// close acquires the exec mutex, so an execution that slipped in before
	// the queue surgery finishes first; its result is then discarded by the
	// dispatcher's re-check.
	err := c.close()

	slogctx.FromCtx(ctx).Info("removed server connection", "connection", name)
	signal(r.wake)
	return err
}

// Reconcile applies a fresh set of connection descriptors, the reload
// semantics of the host lifecycle: connections no longer configured are torn
// down, new ones are connected and registered, unchanged ones are left
// alone. A connection that fails its initial connect is logged and skipped;
// the next reload retries it.
func (r *Registry) Reconcile(ctx context.Context, descs []dsn.Descriptor) {
	logger := slogctx.FromCtx(ctx)

	want := make(map[string]dsn.Descriptor, len(descs))
	for _, d := range descs {
		want[d.Name] = d
	}

	for _, name := range r.Names() {
		if _, keep := want[name]; keep {
			continue
		}
		if err := r.RemoveConnection(ctx, name); err != nil {
			logger.Warn("error closing removed connection", "connection", name, "error", err)
		}
	}

	for name, d := range want {
		if _, exists := r.Connection(name); exists {
			continue
		}

		c := newConn(r.client, d)
		if err := c.connect(ctx); err != nil {
			logger.Error("connection failed", "connection", name, "error", err)
			continue
		}

		r.mu.Lock()
		r.conns[name] = c
		r.mu.Unlock()
		logger.Info("connected to server", "connection", name, "target", d.Redacted())
	}
}

// Close shuts the engine down: the dispatcher is signalled to exit, woken
// and joined, then every session is closed. In-flight execution completes;
// requests still queued are neither executed nor delivered; hosts that care
// drain before closing.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	r.wg.Wait()

	r.mu.Lock()
	conns := lo.Values(r.conns)
	r.conns = make(map[string]*Conn)
	r.mu.Unlock()

	var merr *multierror.Error
	for _, c := range conns {
		if err := c.close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
