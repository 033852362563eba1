// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import "github.com/google/uuid"

// Callback receives the outcome of one submitted query. Exactly one of the
// two methods is invoked per query that is not cancelled before execution,
// always from Drain on the host's goroutine (or inline during connection
// teardown), never from the dispatcher.
type Callback interface {
	// OnResult delivers a successful result.
	OnResult(*Result)
	// OnError delivers a result whose Err is set.
	OnError(*Result)
}

// pendingRequest lives in the pending queue from submission until it is
// executed or cancelled.
type pendingRequest struct {
	id       uuid.UUID
	conn     *Conn
	callback Callback
	query    Query
}

// finishedRequest lives in the finished queue from completion until drained.
type finishedRequest struct {
	id       uuid.UUID
	conn     *Conn
	callback Callback
	result   *Result
}

// signal performs a coalescing non-blocking send on a size-1 channel. Wake
// and drain notifications only need to record "there is work", not how much.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
