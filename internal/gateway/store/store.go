package store

import (
	"context"
	"errors"
	"time"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. The gateway keeps almost nothing locally; the one table is
// the subject-to-internal-id link used by login and the fallback reconciler.
type Store interface {
	UserLinks() UserLinks

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type UserLinks interface {
	// GetBySubject returns the link for an identity-provider subject.
	GetBySubject(ctx context.Context, subject string) (domain.UserLink, error)

	// Upsert inserts or replaces the link for a subject.
	Upsert(ctx context.Context, link domain.UserLink) error

	// ListFallbacks returns up to limit links still carrying a locally
	// generated id, oldest first, for the reconciler to retry.
	ListFallbacks(ctx context.Context, limit int) ([]domain.UserLink, error)

	// Confirm upgrades a fallback link to a backend-confirmed internal id.
	Confirm(ctx context.Context, subject, internalID string, at time.Time) error

	// DeleteStaleFallbacks removes fallback links not touched since the
	// cutoff. Housekeeping; returns the number of rows removed.
	DeleteStaleFallbacks(ctx context.Context, cutoff time.Time) (int64, error)
}
