// Package storage defines the interface for a blob storage provider. The
// abstraction keeps snapshot uploads independent of a specific backend
// (Google Cloud Storage, the local filesystem, or memory in tests).
package storage

import (
	"context"
)

// Provider abstracts saving an artifact to a blob store.
type Provider interface {
	// Save uploads data under the given object name and returns the URI of
	// the stored object.
	Save(ctx context.Context, objectName string, data []byte) (string, error)
}

// NoOpProvider discards artifacts. Used when no remote snapshot copy is
// wanted.
type NoOpProvider struct{}

// Save does nothing and returns an empty URI.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) (string, error) {
	return "", nil
}
