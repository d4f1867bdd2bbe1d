package ports

import "context"

// RemoteRecord is a CRM record resolved by a lookup: its CRM id plus any
// fields the caller asked for.
type RemoteRecord struct {
	ID     string
	Fields map[string]string
}

// CRMClient is the capability set the replication core consumes. Lookups
// return an error wrapping domain.ErrNotFound when no record matches; every
// other failure wraps domain.ErrAdapter. The implementation owns session
// handling, including re-authentication on unauthorized responses.
type CRMClient interface {
	// CreateEntity creates a module record and returns its CRM id.
	CreateEntity(ctx context.Context, kind string, attributes map[string]any) (string, error)
	// UpdateEntity patches an existing module record.
	UpdateEntity(ctx context.Context, kind, remoteID string, attributes map[string]any) error
	// DeleteEntity removes a module record.
	DeleteEntity(ctx context.Context, kind, remoteID string) error
	// LinkEntities relates two records through the modules' default relationship.
	LinkEntities(ctx context.Context, kind, remoteID, relatedKind, relatedID string) error
	// LinkByRelationship relates two records through a named link field. Some
	// target relationships are only reachable through the legacy API.
	LinkByRelationship(ctx context.Context, kind, remoteID, relationship, relatedID string) error
	// LookupByForeignID finds the record whose source-system id field equals
	// foreignID, selecting the given extra fields.
	LookupByForeignID(ctx context.Context, kind string, foreignID int64, fields ...string) (RemoteRecord, error)
	// LookupByUniqueCode finds the record whose unique code/number field
	// equals code, selecting the given extra fields.
	LookupByUniqueCode(ctx context.Context, kind, code string, fields ...string) (RemoteRecord, error)
	// RelatedEntityID returns the id of the first record related to remoteID
	// through the named relationship.
	RelatedEntityID(ctx context.Context, kind, remoteID, relationship string) (string, error)
}
