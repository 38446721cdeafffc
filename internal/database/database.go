// Package database defines the interface for persisting harvested scheme
// records. The interface decouples the pipeline from a specific backend so a
// run can proceed with a no-op provider when no database is configured.
package database

import (
	"context"

	"github.com/janseva-labs/schemeharvest/internal/harvest"
)

// Provider is the persistence layer for scheme records.
type Provider interface {
	// UpsertSchemes writes a batch of records. Records that already exist,
	// matched on (name, region, link), are refreshed in place. It returns the
	// number of records written.
	UpsertSchemes(ctx context.Context, records []harvest.SchemeRecord) (int, error)

	// UpsertScheme writes a single record, used as the fallback path when a
	// batch fails.
	UpsertScheme(ctx context.Context, record harvest.SchemeRecord) error

	// Close terminates the connection pool and releases resources.
	Close() error
}

// NoOpProvider discards all writes. Used when the run is snapshot-only.
type NoOpProvider struct{}

// UpsertSchemes reports every record as written.
func (n *NoOpProvider) UpsertSchemes(_ context.Context, records []harvest.SchemeRecord) (int, error) {
	return len(records), nil
}

// UpsertScheme does nothing.
func (n *NoOpProvider) UpsertScheme(_ context.Context, _ harvest.SchemeRecord) error {
	return nil
}

// Close does nothing.
func (n *NoOpProvider) Close() error { return nil }
