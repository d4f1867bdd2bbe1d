package ports

import (
	"context"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// PendingPackageRepository stores the unapplied remainders of failed packages,
// partitioned by client id. Reads must be strongly consistent: a failure
// recorded by one invocation is visible to the very next invocation for the
// same scope, because retries are driven purely by notification arrival.
type PendingPackageRepository interface {
	// Put inserts a new entry. Sort keys are unique per failure event, so Put
	// never updates in place.
	Put(ctx context.Context, entry domain.PendingPackage) error
	// GetByScope returns every entry for one (client, business) scope,
	// ascending by message date.
	GetByScope(ctx context.Context, clientID, businessID int64) ([]domain.PendingPackage, error)
	// ScanAll returns every entry across all scopes, ascending by message date.
	ScanAll(ctx context.Context) ([]domain.PendingPackage, error)
	// Delete removes exactly one entry.
	Delete(ctx context.Context, clientID int64, sortKey string) error
}
