// Package blob stores raw video payloads keyed by video id and hands out
// short-lived playback references for them.
package blob

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("blob not found")

// Store is the binary object boundary. Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Reference is a transient playback handle. It stops working after
// ExpiresAt or once the blob is deleted.
type Reference struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Linker resolves a stored blob into a playback reference.
type Linker interface {
	Link(ctx context.Context, key string) (Reference, error)
}
