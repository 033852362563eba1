// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"testing"
	"time"
)

func TestQuoteEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"o'brien", "o''brien"},
		{"'; DROP TABLE users; --", "''; DROP TABLE users; --"},
		{"''", "''''"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := quoteEscape(tt.in); got != tt.want {
			t.Errorf("quoteEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStringifyValue(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{[]byte("bytes"), "bytes"},
		{int64(42), "42"},
		{true, "t"},
		{false, "f"},
		{ts, "2025-03-01T12:00:00Z"},
	}

	for _, tt := range tests {
		if got := stringifyValue(tt.in); got != tt.want {
			t.Errorf("stringifyValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
