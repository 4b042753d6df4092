// Package kv is the only path to persisted state. It stores JSON values
// under string keys on a pluggable backend.
package kv

import (
	"context"
	"errors"
)

// Backend is a raw byte key-value substrate.
type Backend interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Name() string
	Close() error
}

var ErrClosed = errors.New("kv: backend closed")
