// Package publisher defines the interface for announcing completed harvest
// runs to downstream consumers.
package publisher

import (
	"context"
)

// Provider publishes a payload to a named topic and returns a message ID.
type Provider interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
	Close() error
}

// NoOpProvider drops all publishes. Used when no downstream is configured.
type NoOpProvider struct{}

// Publish does nothing and returns a dummy ID.
func (n *NoOpProvider) Publish(_ context.Context, _ string, _ any) (string, error) {
	return "noop-message-id", nil
}

// Close does nothing.
func (n *NoOpProvider) Close() error { return nil }
