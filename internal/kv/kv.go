// Package kv is a small durable key-value overlay for operator settings such as
// feature flags. Values are JSON documents addressed by string keys.
//
// Backends: PostgreSQL (kv_store table, created lazily), Redis, an in-process
// map, and Disabled for deployments without a configured backend. Disabled
// reads behave as "not found" so callers fall back to their defaults.
package kv

import (
	"context"
	"errors"
)

// DefaultKeysLimit bounds Keys when the caller passes a non-positive limit.
const DefaultKeysLimit = 2000

// ErrNotConfigured is returned by writes on the Disabled backend.
var ErrNotConfigured = errors.New("kv store not configured")

// Store reads and writes JSON values.
type Store interface {
	// Get decodes the value stored at key into dst. found is false when the key
	// is absent; dst is left untouched in that case.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	// Set upserts value (JSON-encoded) at key and bumps its update time.
	Set(ctx context.Context, key string, value any) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix, most recently updated first.
	Keys(ctx context.Context, prefix string, limit int) ([]string, error)
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultKeysLimit
	}
	return limit
}

// Disabled is the no-op backend.
type Disabled struct{}

func (Disabled) Get(context.Context, string, any) (bool, error) { return false, nil }

func (Disabled) Set(context.Context, string, any) error { return ErrNotConfigured }

func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) Keys(context.Context, string, int) ([]string, error) { return []string{}, nil }
