package repositories

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound indicates the key is absent from the store
	ErrKeyNotFound = errors.New("key not found")

	// ErrQuotaExceeded indicates the store rejected a value for its size
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KVStore is the persistent key-value surface balance history lives in.
// Implementations may reject writes with ErrQuotaExceeded and may hold
// values that were corrupted outside this program.
type KVStore interface {
	// Get returns the stored value or ErrKeyNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate their keys
type KeyLister interface {
	// Keys returns the stored keys starting with prefix, sorted
	Keys(ctx context.Context, prefix string) ([]string, error)
}
