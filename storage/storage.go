package storage

import (
	"context"
	"io"
	"io/fs"
)

type StreamWriter interface {
	io.Writer
	io.Closer
}

// ErrDoesNotExist is returned by Read when there is nothing stored under a key.
// It is fs.ErrNotExist so callers can test for either.
var ErrDoesNotExist = fs.ErrNotExist

// System defines the operations for interacting with the storage backend
type System interface {
	// Write stores data under key, replacing anything already there
	Write(ctx context.Context, key string, data []byte) error

	// BeginStream replaces the value under key with whatever is written to the
	// stream. Nothing is guaranteed to be visible until Close returns.
	BeginStream(ctx context.Context, key string) (StreamWriter, error)

	// Read returns the value stored under key or ErrDoesNotExist
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes key, deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	GetKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
}
