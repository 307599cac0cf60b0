// Package store provides tiered key/value persistence for dataset
// snapshots: a remote Redis tier when configured, falling back to the
// local filesystem. Durability wins over tier preference — a failed
// primary write falls through instead of failing the operation.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a tier when the key has no value.
// Tiered lookup treats it as "fall through to the next tier".
var ErrNotFound = errors.New("store: key not found")

// Tier is one candidate backend in the ordered fallback chain.
type Tier interface {
	// Name identifies the tier in logs.
	Name() string
	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set upserts the blob stored under key.
	Set(ctx context.Context, key string, data []byte) error
}
