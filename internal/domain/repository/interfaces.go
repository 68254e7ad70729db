// Package repository defines the storage interfaces used by the app layer.
// Following the dependency inversion principle, domain and app logic depend
// on these interfaces, and infrastructure packages provide implementations.
package repository

import (
	"context"
	"time"

	"causalGraphApp/internal/domain/model"
)

// EventLog is the append-only record store. It is the durable source of
// truth: the live graph is a cache rebuildable by replaying the log.
type EventLog interface {
	// Append writes one record with the next sequence id. The payload is
	// JSON-serialized. A failed append must never be silently dropped;
	// callers treat it as fatal to the triggering operation.
	Append(ctx context.Context, action string, payload any) error

	// Scan streams all records in ascending id order. Returning an error
	// from fn stops the scan and propagates that error.
	Scan(ctx context.Context, fn func(rec *model.LogRecord) error) error

	Close() error
}

// SnapshotCache holds the latest graph snapshot for external viewers.
// Implementations prioritize speed over durability.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// EventArchive persists raw inserted events for historical analysis and
// audit. It is optional at runtime; the pipeline works without it.
type EventArchive interface {
	SaveEvent(ctx context.Context, ev *model.Event) error
	GetEventsSince(ctx context.Context, since time.Time) ([]*model.Event, error)
}
