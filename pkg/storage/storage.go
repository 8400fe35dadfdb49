// Package storage provides the byte key-value backends the FROST stores are
// built on, with an in-memory and a file-based implementation.
package storage

import "errors"

var (
	// ErrClosed is returned when attempting to use a closed backend.
	ErrClosed = errors.New("storage: closed")
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidKey is returned for keys a backend can't store.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrCorrupted is returned when stored data fails its integrity check.
	ErrCorrupted = errors.New("storage: corrupted data")
)

// Backend is a key-value store.
//
// Keys are '/' separated paths. All implementations must be safe for
// concurrent use.
type Backend interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Put stores the value for the given key, overwriting any previous value.
	Put(key string, value []byte) error

	// Delete removes the key and its value from storage.
	// Returns ErrNotFound if the key does not exist.
	//
	// When several callers delete the same key concurrently, exactly one succeeds.
	Delete(key string) error

	// List returns all keys with the given prefix, in no particular order.
	// If prefix is empty, all keys are returned.
	List(prefix string) ([]string, error)

	// Exists checks if a key exists in storage.
	Exists(key string) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}
