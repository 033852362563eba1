// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth verifies account credentials against a SQL backend through the
// asynchronous engine. Each verification submits one parameterized query and
// reports the outcome via caller-supplied sinks once the result is drained.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"querypipe/cli/internal/engine"
	qerrors "querypipe/cli/internal/errors"
	"querypipe/cli/internal/logging"

	slogctx "github.com/veqryn/slog-context"
)

// Identity describes a successfully verified account.
type Identity struct {
	Account   string
	Email     string
	Nicknames []string
}

// SuccessFunc receives the identity of a verified account.
type SuccessFunc func(id Identity)

// FailureFunc receives the account name and the reason verification failed.
// A nil reason means the credentials simply did not match any row.
type FailureFunc func(account string, reason error)

// Verifier submits credential checks to a single engine connection.
type Verifier struct {
	reg       *engine.Registry
	conn      string
	template  engine.Query
	onSuccess SuccessFunc
	onFailure FailureFunc
	logger    *slog.Logger
}

// NewVerifier builds a Verifier around the given query template. The template
// must reference @account@ and @password@ placeholders; the first row it
// returns may carry "email" and "nicknames" columns.
func NewVerifier(ctx context.Context, reg *engine.Registry, conn, queryText string, success SuccessFunc, failure FailureFunc) *Verifier {
	return &Verifier{
		reg:       reg,
		conn:      conn,
		template:  engine.NewQuery(queryText),
		onSuccess: success,
		onFailure: failure,
		logger:    slogctx.FromCtx(ctx).With("module", "auth"),
	}
}

// Verify queues a credential check. The outcome is reported through the
// success or failure sink during a later Drain on the owning registry.
func (v *Verifier) Verify(account, password string) error {
	q := v.template.
		SetValue("account", account).
		SetValue("password", password)
	return v.reg.Submit(v.conn, q, &check{v: v, account: account})
}

// Teardown cancels every outstanding check owned by this verifier. Requests
// already executed but not yet drained are dropped along with the queued ones;
// no sink fires for them afterwards.
func (v *Verifier) Teardown() {
	v.reg.Cancel(func(cb engine.Callback) bool {
		c, ok := cb.(*check)
		return ok && c.v == v
	})
}

// check ties one submitted query back to its verifier.
type check struct {
	v       *Verifier
	account string
}

func (c *check) OnResult(r *engine.Result) {
	switch r.RowCount() {
	case 0:
		c.v.onFailure(c.account, nil)
	case 1:
		email, _ := r.Get(0, "email")
		nicks, _ := r.Get(0, "nicknames")
		c.v.onSuccess(Identity{
			Account:   c.account,
			Email:     email,
			Nicknames: parseNicknames(nicks),
		})
	default:
		// one account matching several rows points at tampered data
		err := qerrors.New(qerrors.SecurityAnomaly, "multiple rows returned for "+c.account)
		c.v.logger.Warn("credential check anomaly", "account", c.account, "rows", r.RowCount())
		c.v.onFailure(c.account, err)
	}
}

func (c *check) OnError(r *engine.Result) {
	// backend diagnostics can embed the connection string
	c.v.logger.Warn("credential check failed", "account", c.account, "error", logging.Mask(r.ErrorText()))
	c.v.onFailure(c.account, r.Err())
}

// parseNicknames splits an array literal of the form {alice,bob} into its
// elements. Empty input yields nil.
func parseNicknames(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
