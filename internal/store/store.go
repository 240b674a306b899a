// Package store persists usage counters and generated artifacts.
//
// Two backends implement the same interfaces:
// - MemoryStore: process-local maps, the default when no database is configured
// - PostgresStore: durable state behind database/sql with the pgx driver
//
// Every mutation of one identity's counters runs as a single read-modify-write
// so concurrent uploads for the same identity never lose an increment.
package store

import (
	"context"
	"errors"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// Sentinel errors returned by every backend.
var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate id")
)

// =============================================================================
// Interface Definition
// =============================================================================

// UpdateFunc mutates counters in place and reports whether they must be saved.
// Returning an error aborts the update without saving.
type UpdateFunc func(c *domain.UsageCounters) (dirty bool, err error)

// UsageStore holds per-identity upload counters.
type UsageStore interface {
	// UpdateUsage loads the counters for identity, applies fn atomically with
	// respect to other updates of the same identity, and returns the result.
	// Missing identities start from zero counters with empty markers.
	UpdateUsage(ctx context.Context, identity string, fn UpdateFunc) (domain.UsageCounters, error)
}

// ArtifactStore holds generated outputs.
type ArtifactStore interface {
	// PutArtifact saves a new artifact. Returns ErrDuplicate if the id is taken.
	PutArtifact(ctx context.Context, a domain.StoredArtifact) error

	// ListArtifacts returns the owner's artifacts, newest first.
	ListArtifacts(ctx context.Context, owner string) ([]domain.StoredArtifact, error)

	// GetArtifact returns one artifact by id. Returns ErrNotFound if absent.
	GetArtifact(ctx context.Context, id string) (domain.StoredArtifact, error)

	// DeleteArtifact removes id if owner owns it and reports whether it did.
	DeleteArtifact(ctx context.Context, owner, id string) (bool, error)
}

// Store is the union of both interfaces; both backends satisfy it.
type Store interface {
	UsageStore
	ArtifactStore
	Close() error
}
