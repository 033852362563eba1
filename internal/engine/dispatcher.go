// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"

	slogctx "github.com/veqryn/slog-context"
)

// dispatch is the worker loop. One goroutine per registry drains the pending
// queue in FIFO order across all connections, executes outside the lock, and
// appends outcomes to the finished queue.
//
// The front entry is peeked, not popped, before execution: a cancellation
// may remove it while the statement runs unlocked, and in that case the
// just-computed result is discarded rather than delivered to a callback that
// may no longer be valid. The post-execution re-check compares query text,
// the equality queries are defined over.
func (r *Registry) dispatch(ctx context.Context) {
	logger := slogctx.FromCtx(ctx)

	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.mu.Lock()
		if len(r.pending) > 0 {
			req := r.pending[0]
			r.mu.Unlock()

			logger.Debug("executing query",
				"request_id", req.id,
				"connection", req.conn.Name(),
			)
			res := req.conn.execute(ctx, req.query)

			r.mu.Lock()
			if len(r.pending) > 0 && r.pending[0].query.Text() == req.query.Text() {
				front := r.pending[0]
				r.pending[0] = nil
				r.pending = r.pending[1:]
				if front.callback != nil {
					r.finished = append(r.finished, &finishedRequest{
						id:       front.id,
						conn:     front.conn,
						callback: front.callback,
						result:   res,
					})
				}
			} else {
				logger.Debug("discarding result of cancelled request", "request_id", req.id)
			}
			r.mu.Unlock()
			continue
		}

		pendingDrain := len(r.finished) > 0
		r.mu.Unlock()

		if pendingDrain {
			signal(r.notify)
		}

		select {
		case <-r.wake:
		case <-r.done:
			return
		}
	}
}
