// Package ledger wraps the Hyperledger Fabric gateway behind a small
// submit/evaluate interface so handlers never touch the SDK directly.
package ledger

import (
	"context"
	"errors"
)

// ErrDisabled is returned by the disabled client; callers leave records in
// sync status pending instead of marking them failed.
var ErrDisabled = errors.New("ledger disabled")

// Client is one connected ledger handle, scoped to a single acting identity.
// Submissions are signed as that identity. Close releases the handle; the
// underlying transport is shared and stays up.
type Client interface {
	// Submit sends a state-changing transaction and returns its id once the
	// network commits it.
	Submit(ctx context.Context, fn string, args ...string) (string, error)

	// Evaluate runs a read-only query against a single peer.
	Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error)

	Close() error
}

// Disabled is the no-ledger deployment mode: every call reports ErrDisabled.
type Disabled struct{}

func (Disabled) Submit(context.Context, string, ...string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Evaluate(context.Context, string, ...string) ([]byte, error) {
	return nil, ErrDisabled
}

func (Disabled) Close() error { return nil }
