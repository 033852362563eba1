// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	slogctx "github.com/veqryn/slog-context"
)

// ParseLevel maps a config-file level string to a slog level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewContext returns a context carrying a text-format slog logger at the
// given level. Components retrieve it with slogctx.FromCtx and annotate it
// with slogctx.With, so log attributes follow the call path rather than a
// process-wide logger.
func NewContext(parent context.Context, level string) context.Context {
	h := slogctx.NewHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(level)}),
		nil,
	)
	return slogctx.NewCtx(parent, slog.New(h))
}
