// Package source defines the contract of OSINT source adapters. Each adapter
// lives in its own subpackage and turns one lookup against an external data
// source into a typed domain payload.
package source

import (
	"context"
	"fmt"
	"strings"

	"osint/pkg/domain"
	"osint/pkg/serrors"
)

// Source is a single OSINT data source.
type Source interface {
	// Module returns the tag of the envelopes built from this source's payloads.
	Module() domain.Module
	// Lookup queries the source for the target. Failures are returned as
	// errors; the caller turns them into error envelopes.
	Lookup(ctx context.Context, target domain.Target) (domain.Payload, error)
}

// Value returns the target's single value after checking its kind. It is the
// common preamble of adapters working on one value.
func Value(target domain.Target, kind domain.TargetKind) (string, error) {
	if target.Kind != kind {
		return "", serrors.With(serrors.ErrBadRequest, "expected %s target, got %q", kind, target.Kind)
	}
	v := strings.TrimSpace(target.Value)
	if v == "" {
		return "", serrors.With(serrors.ErrBadRequest, "empty %s", kind)
	}

	return v, nil
}

// Truncate cuts s to at most n bytes on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}

	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// HTTPStatusError builds the error of an unexpected HTTP response.
func HTTPStatusError(status int, body []byte) error {
	return fmt.Errorf("HTTP %d - %s", status, Truncate(strings.TrimSpace(string(body)), 200)) //nolint: err113
}
