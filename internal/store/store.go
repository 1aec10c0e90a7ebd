package store

import (
	"context"
	"errors"
)

// Sentinel errors for common error conditions
var (
	ErrNotFound = errors.New("key not found")
	ErrClosed   = errors.New("store closed")
)

// KVStore is a string key-value store used to persist session state.
//
// Implementations must be safe for concurrent use. Deleting keys that do not
// exist is not an error.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
