// Package kv is the persistent key-value storage used by widgets to remember
// a user's choices. Every backend is last write wins.
package kv

import (
	"context"
	"errors"
)

// ErrClosed returned when a store is used after it was shut down.
var ErrClosed = errors.New("kv store closed")

// Store reads and writes string values.
type Store interface {
	// Get returns the value of key, ok is false when it was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

// Key namespaces a widget key by the owning session.
func Key(session, key string) string {
	return session + ":" + key
}
