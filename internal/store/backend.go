// Package store defines the Backend interface for session blob storage
// and an instrumented wrapper shared by all implementations.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetObject when no blob exists under the key.
var ErrNotFound = errors.New("store: object not found")

// Backend is an opaque key-value blob store.
// Implementations: local filesystem, S3, MinIO, Redis, SQL.
type Backend interface {
	// GetObject returns the blob stored under key, or ErrNotFound.
	GetObject(ctx context.Context, key string) ([]byte, error)

	// PutObject replaces the blob stored under key.
	PutObject(ctx context.Context, key string, data []byte) error

	// DeleteObject removes the blob. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, key string) error

	// Type returns the backend type identifier ("local", "s3", ...).
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
