package storage

import (
	"context"
	"errors"
)

// ErrKeyExists is returned by a Backend when the key is already taken.
// Backends never overwrite an existing object.
var ErrKeyExists = errors.New("storage: key already exists")

// Backend is a create-only object store with deterministic public URLs.
type Backend interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PublicURL(key string) string
}
